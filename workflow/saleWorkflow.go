package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "workflow"

// SaleLocker serializes update/delete of one sale across instances.
type SaleLocker interface {
	LockSale(ctx context.Context, saleId int) (unlock func(), err error)
}

// ProductCache drops cached product copies after their stock changed.
type ProductCache interface {
	InvalidateProducts(ids ...int)
}

type productCacheFunc func(ids ...int)

func (f productCacheFunc) InvalidateProducts(ids ...int) { f(ids...) }

// SaleWorkflow creates, updates and deletes sales while keeping product stock
// consistent. Each operation is one transaction: any error leaves nothing behind.
type SaleWorkflow struct {
	store  SaleStore
	logger *logrus.Logger
	locker SaleLocker
	cache  ProductCache
	// second invalidation after commit, 0 disables it
	redelete time.Duration
	now      func() time.Time
	tracer   trace.Tracer
}

type Option func(*SaleWorkflow)

func WithLogger(logger *logrus.Logger) Option {
	return func(w *SaleWorkflow) { w.logger = logger }
}

func WithSaleLocker(locker SaleLocker) Option {
	return func(w *SaleWorkflow) { w.locker = locker }
}

func WithProductCache(cache ProductCache) Option {
	return func(w *SaleWorkflow) { w.cache = cache }
}

func WithCacheRedelete(delay time.Duration) Option {
	return func(w *SaleWorkflow) { w.redelete = delay }
}

func WithClock(now func() time.Time) Option {
	return func(w *SaleWorkflow) { w.now = now }
}

func NewSaleWorkflow(store SaleStore, opts ...Option) *SaleWorkflow {
	w := &SaleWorkflow{
		store:    store,
		logger:   config.GetLogger(),
		cache:    productCacheFunc(models.ClearProductCache),
		redelete: config.ProductCacheRedeleteDelay(),
		now:      time.Now,
		tracer:   otel.Tracer("sales_backend/workflow"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SaleWorkflow) CreateSale(ctx context.Context, input *models.NewSale) (*models.Sale, error) {
	ctx, span := w.tracer.Start(ctx, "SaleWorkflow.CreateSale")
	defer span.End()

	if err := input.Validate(true); err != nil {
		return nil, w.fail(ctx, span, "CreateSale", 0, err)
	}

	var sale *models.Sale
	var reconciler *StockReconciler
	err := w.store.Transaction(ctx, func(tx SaleTx) error {
		customer, err := tx.FindCustomerById(ctx, input.CustomerId)
		if err != nil {
			return err
		}
		products, err := lockProducts(ctx, tx, input.Details, nil)
		if err != nil {
			return err
		}

		reconciler = NewStockReconciler(tx, products)
		details := make([]models.SaleDetail, 0, len(input.Details))
		for _, req := range input.Details {
			if err := reconciler.ApplyDelta(ctx, req.ProductId, -req.Quantity); err != nil {
				return err
			}
			details = append(details, newSaleDetail(0, req, products))
		}

		sale = &models.Sale{
			SaleDate:   saleDate(w.now()),
			CustomerId: customer.ID,
			Customer:   customer,
			Details:    details,
		}
		return tx.SaveSale(ctx, sale)
	})
	if err != nil {
		return nil, w.fail(ctx, span, "CreateSale", 0, err)
	}

	span.SetAttributes(attribute.Int("sale.id", sale.ID))
	w.afterCommit(ctx, "CreateSale", sale.ID, reconciler)
	return sale, nil
}

// UpdateSale replaces the sale's customer and line items. Removed line items are
// restored before new or changed ones consume stock, so freed units are available.
func (w *SaleWorkflow) UpdateSale(ctx context.Context, id int, input *models.NewSale) (*models.Sale, error) {
	ctx, span := w.tracer.Start(ctx, "SaleWorkflow.UpdateSale", trace.WithAttributes(attribute.Int("sale.id", id)))
	defer span.End()

	if err := input.Validate(false); err != nil {
		return nil, w.fail(ctx, span, "UpdateSale", id, err)
	}

	unlock, err := w.lock(ctx, id)
	if err != nil {
		return nil, w.fail(ctx, span, "UpdateSale", id, err)
	}
	defer unlock()

	var sale *models.Sale
	var reconciler *StockReconciler
	err = w.store.Transaction(ctx, func(tx SaleTx) error {
		existing, err := tx.FindSaleById(ctx, id)
		if err != nil {
			return err
		}
		customer, err := tx.FindCustomerById(ctx, input.CustomerId)
		if err != nil {
			return err
		}
		products, err := lockProducts(ctx, tx, input.Details, existing.Details)
		if err != nil {
			return err
		}
		diff, err := DiffLineItems(existing.ID, existing.Details, input.Details)
		if err != nil {
			return err
		}

		reconciler = NewStockReconciler(tx, products)
		for _, removed := range diff.Removed {
			if err := reconciler.Restore(ctx, removed); err != nil {
				return err
			}
		}

		details := make([]models.SaleDetail, 0, len(diff.Changes))
		for _, change := range diff.Changes {
			if err := reconciler.Consume(ctx, change); err != nil {
				return err
			}
			detailId := 0
			if change.Kind == ChangeMatched {
				detailId = change.Existing.ID
			}
			details = append(details, newSaleDetail(detailId, change.Request, products))
		}

		existing.CustomerId = customer.ID
		existing.Customer = customer
		existing.Details = details
		sale = existing
		return tx.SaveSale(ctx, sale)
	})
	if err != nil {
		return nil, w.fail(ctx, span, "UpdateSale", id, err)
	}

	w.afterCommit(ctx, "UpdateSale", id, reconciler)
	return sale, nil
}

// DeleteSale restores every line item's quantity and removes the sale.
func (w *SaleWorkflow) DeleteSale(ctx context.Context, id int) error {
	ctx, span := w.tracer.Start(ctx, "SaleWorkflow.DeleteSale", trace.WithAttributes(attribute.Int("sale.id", id)))
	defer span.End()

	unlock, err := w.lock(ctx, id)
	if err != nil {
		return w.fail(ctx, span, "DeleteSale", id, err)
	}
	defer unlock()

	var reconciler *StockReconciler
	err = w.store.Transaction(ctx, func(tx SaleTx) error {
		sale, err := tx.FindSaleById(ctx, id)
		if err != nil {
			return err
		}
		products, err := lockProducts(ctx, tx, nil, sale.Details)
		if err != nil {
			return err
		}
		reconciler = NewStockReconciler(tx, products)
		for _, detail := range sale.Details {
			if err := reconciler.Restore(ctx, detail); err != nil {
				return err
			}
		}
		return tx.DeleteSale(ctx, sale)
	})
	if err != nil {
		return w.fail(ctx, span, "DeleteSale", id, err)
	}

	w.afterCommit(ctx, "DeleteSale", id, reconciler)
	return nil
}

func (w *SaleWorkflow) GetSale(ctx context.Context, id int) (*models.Sale, error) {
	return w.store.FindSaleById(ctx, id)
}

func (w *SaleWorkflow) ListSales(ctx context.Context) ([]*models.Sale, error) {
	return w.store.FindSales(ctx)
}

func (w *SaleWorkflow) ListSaleDetails(ctx context.Context, saleId int) ([]models.SaleDetail, error) {
	return w.store.FindSaleDetails(ctx, saleId)
}

// lockProducts reads and locks, in one batch, every product the operation can
// touch: the requested ones plus those of the existing line items. No product row
// is locked outside this id-ordered read. The first requested item (in order)
// whose product is missing is reported.
func lockProducts(ctx context.Context, tx SaleTx, requested []models.NewSaleDetail, existing []models.SaleDetail) (map[int]*models.Product, error) {
	ids := make([]int, 0, len(requested)+len(existing))
	for _, req := range requested {
		ids = append(ids, req.ProductId)
	}
	for _, detail := range existing {
		ids = append(ids, detail.ProductId)
	}
	found, err := tx.FindProductsByIds(ctx, utils.UniqueSlice(ids))
	if err != nil {
		return nil, err
	}
	products := make(map[int]*models.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, req := range requested {
		if _, ok := products[req.ProductId]; !ok {
			return nil, models.NewNotFoundError(models.KindProduct, req.ProductId)
		}
	}
	return products, nil
}

func newSaleDetail(id int, req models.NewSaleDetail, products map[int]*models.Product) models.SaleDetail {
	return models.SaleDetail{
		ID:        id,
		ProductId: req.ProductId,
		Product:   products[req.ProductId],
		Quantity:  req.Quantity,
		UnitPrice: utils.DereferencePtr(req.UnitPrice),
	}
}

// calendar day of t in UTC
func saleDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (w *SaleWorkflow) lock(ctx context.Context, saleId int) (func(), error) {
	if w.locker == nil {
		return func() {}, nil
	}
	return w.locker.LockSale(ctx, saleId)
}

func (w *SaleWorkflow) afterCommit(ctx context.Context, funcName string, saleId int, reconciler *StockReconciler) {
	if reconciler == nil {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	for _, applied := range reconciler.Applied() {
		w.logger.WithFields(logrus.Fields{
			"module":        moduleName,
			"funcName":      funcName,
			"saleId":        saleId,
			"productId":     applied.ProductId,
			"delta":         applied.Delta,
			"stock":         applied.Stock,
			"correlationId": correlationId,
		}).Debug("stock delta applied")
	}
	ids := reconciler.TouchedProductIds()
	if len(ids) == 0 || w.cache == nil {
		return
	}
	w.cache.InvalidateProducts(ids...)
	if w.redelete > 0 {
		cache := w.cache
		time.AfterFunc(w.redelete, func() { cache.InvalidateProducts(ids...) })
	}
}

// fail records err on the span and logs it: business rule violations at warn,
// anything else at error.
func (w *SaleWorkflow) fail(ctx context.Context, span trace.Span, funcName string, saleId int, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)
	fields := logrus.Fields{
		"module":        moduleName,
		"funcName":      funcName,
		"saleId":        saleId,
		"userId":        userId,
		"correlationId": correlationId,
	}
	if isBusinessError(err) {
		w.logger.WithFields(fields).Warn(err.Error())
	} else {
		config.LogError(w.logger, moduleName, funcName, "sale transaction rolled back", fields, err)
	}
	return err
}

func isBusinessError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrInsufficientStock) ||
		errors.Is(err, models.ErrValidation) ||
		errors.Is(err, utils.ErrLockNotObtained)
}
