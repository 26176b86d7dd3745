package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingCache struct {
	mu  sync.Mutex
	ids []int
}

func (c *recordingCache) InvalidateProducts(ids ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
}

func (c *recordingCache) invalidated() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.ids...)
}

type fakeLocker struct {
	err     error
	locked  []int
	release int
}

func (l *fakeLocker) LockSale(ctx context.Context, saleId int) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, saleId)
	return func() { l.release++ }, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var fixedNow = time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)

func newTestWorkflow(store SaleStore, opts ...Option) (*SaleWorkflow, *recordingCache) {
	cache := &recordingCache{}
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithProductCache(cache),
		WithCacheRedelete(0),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewSaleWorkflow(store, opts...), cache
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func line(productId, quantity int) models.NewSaleDetail {
	return models.NewSaleDetail{ProductId: productId, Quantity: quantity, UnitPrice: price(10)}
}

func matched(detailId, productId, quantity int) models.NewSaleDetail {
	d := line(productId, quantity)
	d.DetailId = intPtr(detailId)
	return d
}

func seededStore() *memStore {
	store := newMemStore()
	store.addCustomer(1)
	store.addCustomer(2)
	store.addProduct(1, "Laptop", 20)
	store.addProduct(2, "Mouse", 10)
	store.addProduct(3, "Keyboard", 5)
	return store
}

func mustCreate(t *testing.T, w *SaleWorkflow, details ...models.NewSaleDetail) *models.Sale {
	t.Helper()
	sale, err := w.CreateSale(context.Background(), &models.NewSale{CustomerId: 1, Details: details})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return sale
}

func assertStock(t *testing.T, store *memStore, productId, want int) {
	t.Helper()
	if got := store.stock(productId); got != want {
		t.Fatalf("expected product %d stock %d, got %d", productId, want, got)
	}
}

func TestCreateSale_ConsumesStock(t *testing.T) {
	store := seededStore()
	w, cache := newTestWorkflow(store)

	sale := mustCreate(t, w, line(1, 2), line(2, 3))

	assertStock(t, store, 1, 18)
	assertStock(t, store, 2, 7)
	if sale.ID == 0 || len(sale.Details) != 2 {
		t.Fatalf("expected persisted sale with 2 details, got %+v", sale)
	}
	if sale.Customer == nil || sale.Customer.ID != 1 {
		t.Fatalf("expected customer 1 attached")
	}
	if !sale.SaleDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected sale date 2024-03-15, got %v", sale.SaleDate)
	}
	if !sale.Total().Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", sale.Total())
	}
	if len(cache.ids) != 2 {
		t.Fatalf("expected 2 products invalidated, got %v", cache.ids)
	}
}

func TestCreateSale_InvalidatesCacheAgainAfterDelay(t *testing.T) {
	w, cache := newTestWorkflow(seededStore(), WithCacheRedelete(10*time.Millisecond))
	mustCreate(t, w, line(1, 1))
	if got := cache.invalidated(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected product 1 invalidated on commit, got %v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(cache.invalidated()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a second invalidation, got %v", cache.invalidated())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := cache.invalidated(); got[1] != 1 {
		t.Fatalf("expected product 1 invalidated again, got %v", got)
	}
}

func TestCreateSale_InsufficientStockIsAtomic(t *testing.T) {
	store := seededStore()
	w, cache := newTestWorkflow(store)

	_, err := w.CreateSale(context.Background(), &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(3, 10)},
	})
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.AvailableStock != 5 || stockErr.RequestedReduction != 10 {
		t.Fatalf("unexpected error fields %+v", stockErr)
	}
	assertStock(t, store, 3, 5)
	if store.saleCount() != 0 {
		t.Fatalf("expected no sale persisted")
	}
	if len(cache.ids) != 0 {
		t.Fatalf("expected no cache invalidation after rollback")
	}
}

func TestCreateSale_SecondProductFailureRollsBackFirst(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	_, err := w.CreateSale(context.Background(), &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(1, 2), line(3, 6)},
	})
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductId != 3 || stockErr.ProductName != "Keyboard" {
		t.Fatalf("expected error to name the second product, got %+v", stockErr)
	}
	assertStock(t, store, 1, 20)
	assertStock(t, store, 3, 5)
}

func TestCreateSale_SameProductTwiceCountsBothLines(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	_, err := w.CreateSale(context.Background(), &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(3, 3), line(3, 3)},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	assertStock(t, store, 3, 5)
}

func TestCreateSale_RequiresDetails(t *testing.T) {
	w, _ := newTestWorkflow(seededStore())
	_, err := w.CreateSale(context.Background(), &models.NewSale{CustomerId: 1})
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := validationErr.Fields["details"]; !ok {
		t.Fatalf("expected details field error, got %v", validationErr.Fields)
	}
}

func TestCreateSale_RejectsNonPositiveQuantity(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	_, err := w.CreateSale(context.Background(), &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(1, 0)},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assertStock(t, store, 1, 20)
}

func TestCreateSale_RejectsMissingUnitPrice(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	var input models.NewSale
	if err := json.Unmarshal([]byte(`{"customer_id":1,"details":[{"product_id":1,"quantity":3}]}`), &input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err := w.CreateSale(context.Background(), &input)
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if validationErr.Fields["details[0].unit_price"] != "is required" {
		t.Fatalf("expected unit_price field error, got %v", validationErr.Fields)
	}
	assertStock(t, store, 1, 20)
	if store.saleCount() != 0 {
		t.Fatalf("expected no sale saved, got %d", store.saleCount())
	}
}

func TestCreateSale_FailureLogCarriesRequestIdentity(t *testing.T) {
	logger, hook := test.NewNullLogger()
	w, _ := newTestWorkflow(seededStore(), WithLogger(logger))

	ctx := utils.SetUserIdInContext(context.Background(), 42)
	ctx = utils.SetCorrelationIdInContext(ctx, "req-1")
	_, err := w.CreateSale(ctx, &models.NewSale{CustomerId: 1, Details: []models.NewSaleDetail{line(3, 6)}})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected warn entry, got %+v", entry)
	}
	if entry.Data["userId"] != 42 || entry.Data["correlationId"] != "req-1" || entry.Data["funcName"] != "CreateSale" {
		t.Fatalf("unexpected log fields %v", entry.Data)
	}
}

func TestCreateSale_UnknownCustomerAndProduct(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	_, err := w.CreateSale(context.Background(), &models.NewSale{CustomerId: 9, Details: []models.NewSaleDetail{line(1, 1)}})
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) || notFound.Kind != models.KindCustomer || notFound.Id != 9 {
		t.Fatalf("expected customer 9 not found, got %v", err)
	}

	_, err = w.CreateSale(context.Background(), &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(1, 1), line(77, 1), line(88, 1)},
	})
	if !errors.As(err, &notFound) || notFound.Kind != models.KindProduct || notFound.Id != 77 {
		t.Fatalf("expected product 77 not found, got %v", err)
	}
	assertStock(t, store, 1, 20)
}

func TestCreateThenDelete_RestoresStock(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	sale := mustCreate(t, w, line(1, 4), line(2, 10))
	assertStock(t, store, 2, 0)

	if err := w.DeleteSale(context.Background(), sale.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	assertStock(t, store, 1, 20)
	assertStock(t, store, 2, 10)
	if _, err := w.GetSale(context.Background(), sale.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected deleted sale to be gone, got %v", err)
	}
}

func TestDeleteSale_NotFound(t *testing.T) {
	w, _ := newTestWorkflow(seededStore())
	err := w.DeleteSale(context.Background(), 404)
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) || notFound.Kind != models.KindSale {
		t.Fatalf("expected sale not found, got %v", err)
	}
}

func TestUpdateSale_MatchedIncrease(t *testing.T) {
	store := seededStore()
	store.addProduct(1, "Laptop", 22)
	w, _ := newTestWorkflow(store)

	sale := mustCreate(t, w, line(1, 2))
	assertStock(t, store, 1, 20)

	updated, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{matched(sale.Details[0].ID, 1, 5)},
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertStock(t, store, 1, 17)
	if len(updated.Details) != 1 || updated.Details[0].ID != sale.Details[0].ID || updated.Details[0].Quantity != 5 {
		t.Fatalf("expected detail updated in place, got %+v", updated.Details)
	}
}

func TestUpdateSale_MatchedDecrease(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	sale := mustCreate(t, w, line(1, 2))
	assertStock(t, store, 1, 18)

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{matched(sale.Details[0].ID, 1, 1)},
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertStock(t, store, 1, 19)
}

func TestUpdateSale_UnknownDetailIdMutatesNothing(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 2), line(2, 1))

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(2, 5), matched(999, 1, 1)},
	})
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) || notFound.Kind != models.KindLineItem || notFound.Id != 999 || notFound.SaleId != sale.ID {
		t.Fatalf("expected line item 999 not in sale %d, got %v", sale.ID, err)
	}
	assertStock(t, store, 1, 18)
	assertStock(t, store, 2, 9)
}

func assertLockOrder(t *testing.T, store *memStore, want ...int) {
	t.Helper()
	got := store.lockOrder
	if len(got) != len(want) {
		t.Fatalf("expected product locks %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected product locks %v, got %v", want, got)
		}
	}
}

func TestUpdateAndDelete_LockEveryProductOnceInIdOrder(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(3, 1), line(1, 2))
	assertLockOrder(t, store, 1, 3)

	// product 2 is requested, 3 and 1 are only touched by removed line items
	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{line(2, 1)},
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertLockOrder(t, store, 1, 2, 3)

	if err := w.DeleteSale(context.Background(), sale.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	assertLockOrder(t, store, 2)
	assertStock(t, store, 1, 20)
	assertStock(t, store, 2, 10)
	assertStock(t, store, 3, 5)
}

func TestUpdateSale_EmptyDetailsRestoresAll(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 2), line(2, 3))

	updated, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{CustomerId: 1})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertStock(t, store, 1, 20)
	assertStock(t, store, 2, 10)
	if len(updated.Details) != 0 {
		t.Fatalf("expected no details, got %d", len(updated.Details))
	}
	persisted, _ := w.GetSale(context.Background(), sale.ID)
	if len(persisted.Details) != 0 {
		t.Fatalf("expected no persisted details, got %d", len(persisted.Details))
	}
}

func TestUpdateSale_RepeatedRemovalDoesNotDoubleRestore(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 2), line(2, 3))
	keep := matched(sale.Details[0].ID, 1, 2)

	for i := 0; i < 2; i++ {
		_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
			CustomerId: 1,
			Details:    []models.NewSaleDetail{keep},
		})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	assertStock(t, store, 1, 18)
	assertStock(t, store, 2, 10)
}

func TestUpdateSale_RemovalFreesStockForNewLine(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(3, 5))
	assertStock(t, store, 3, 0)

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 2,
		Details:    []models.NewSaleDetail{line(3, 4)},
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertStock(t, store, 3, 1)
	persisted, _ := w.GetSale(context.Background(), sale.ID)
	if persisted.CustomerId != 2 {
		t.Fatalf("expected customer changed to 2, got %d", persisted.CustomerId)
	}
}

func TestUpdateSale_ProductChangeOnMatchedItem(t *testing.T) {
	store := seededStore()
	w, cache := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 4))
	cache.ids = nil

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{matched(sale.Details[0].ID, 2, 6)},
	})
	if err != nil {
		t.Fatalf("update sale: %v", err)
	}
	assertStock(t, store, 1, 20)
	assertStock(t, store, 2, 4)
	if len(cache.ids) != 2 {
		t.Fatalf("expected both products invalidated, got %v", cache.ids)
	}
}

func TestUpdateSale_InsufficientStockRollsBackRestorations(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 2), line(3, 1))

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{matched(sale.Details[1].ID, 3, 50)},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	assertStock(t, store, 1, 18)
	assertStock(t, store, 3, 4)
	persisted, _ := w.GetSale(context.Background(), sale.ID)
	if len(persisted.Details) != 2 {
		t.Fatalf("expected sale untouched, got %d details", len(persisted.Details))
	}
}

func TestUpdateSale_StoreFailureRollsBack(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 2), line(2, 2))
	store.failStockUpdateFor = 2

	_, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{
		CustomerId: 1,
		Details:    []models.NewSaleDetail{matched(sale.Details[0].ID, 1, 1)},
	})
	if !errors.Is(err, errStoreUnavailable) {
		t.Fatalf("expected store error, got %v", err)
	}
	assertStock(t, store, 1, 18)
	assertStock(t, store, 2, 8)
}

func TestUpdateSale_UsesLocker(t *testing.T) {
	store := seededStore()
	locker := &fakeLocker{}
	w, _ := newTestWorkflow(store, WithSaleLocker(locker))
	sale := mustCreate(t, w, line(1, 1))

	if _, err := w.UpdateSale(context.Background(), sale.ID, &models.NewSale{CustomerId: 1}); err != nil {
		t.Fatalf("update sale: %v", err)
	}
	if len(locker.locked) != 1 || locker.locked[0] != sale.ID || locker.release != 1 {
		t.Fatalf("expected sale lock taken and released once, got %+v", locker)
	}

	locker.err = utils.ErrLockNotObtained
	if err := w.DeleteSale(context.Background(), sale.ID); !errors.Is(err, utils.ErrLockNotObtained) {
		t.Fatalf("expected lock error, got %v", err)
	}
	if store.saleCount() != 1 {
		t.Fatalf("expected sale kept when lock is not obtained")
	}
}

func TestListSaleDetails(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)
	sale := mustCreate(t, w, line(1, 1), line(2, 2))
	mustCreate(t, w, line(3, 1))

	details, err := w.ListSaleDetails(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("list details: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(details))
	}
	if _, err := w.ListSaleDetails(context.Background(), 99); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sales, err := w.ListSales(context.Background())
	if err != nil || len(sales) != 2 {
		t.Fatalf("expected 2 sales, got %d (%v)", len(sales), err)
	}
}

func TestConcurrentSales_NeverOversell(t *testing.T) {
	store := seededStore()
	w, _ := newTestWorkflow(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.CreateSale(context.Background(), &models.NewSale{
				CustomerId: 1,
				Details:    []models.NewSaleDetail{line(3, 1)},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected 5 successful sales, got %d", succeeded)
	}
	assertStock(t, store, 3, 0)
}
