package workflow

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/mmdatafocus/sales_backend/models"
)

// memStore is a DB-free SaleStore. A transaction works on a copy of the state and
// only swaps it in when fn returns nil, which gives the same all-or-nothing
// behaviour as the MySQL store.
type memStore struct {
	mu    sync.Mutex
	state memState
	// set to make UpdateProductStock fail for that product id
	failStockUpdateFor int
	// product row locks of the last transaction, in acquisition order
	lockOrder []int
}

type memState struct {
	products     map[int]models.Product
	customers    map[int]models.Customer
	sales        map[int]models.Sale
	nextSaleId   int
	nextDetailId int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		products:     map[int]models.Product{},
		customers:    map[int]models.Customer{},
		sales:        map[int]models.Sale{},
		nextSaleId:   1,
		nextDetailId: 1,
	}}
}

func (s *memState) clone() memState {
	c := memState{
		products:     make(map[int]models.Product, len(s.products)),
		customers:    make(map[int]models.Customer, len(s.customers)),
		sales:        make(map[int]models.Sale, len(s.sales)),
		nextSaleId:   s.nextSaleId,
		nextDetailId: s.nextDetailId,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = copySale(v)
	}
	return c
}

func copySale(sale models.Sale) models.Sale {
	details := make([]models.SaleDetail, len(sale.Details))
	copy(details, sale.Details)
	sale.Details = details
	return sale
}

func (s *memStore) addProduct(id int, name string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[id] = models.Product{ID: id, Name: name, Stock: stock}
}

func (s *memStore) addCustomer(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customers[id] = models.Customer{ID: id, Dni: "DNI-" + strconv.Itoa(id), Name: "Customer"}
}

func (s *memStore) stock(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id].Stock
}

func (s *memStore) saleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.sales)
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx SaleTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{state: s.state.clone(), failStockUpdateFor: s.failStockUpdateFor}
	err := fn(tx)
	s.lockOrder = tx.locked
	if err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *memStore) FindSaleById(ctx context.Context, id int) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.state.sales[id]
	if !ok {
		return nil, models.NewNotFoundError(models.KindSale, id)
	}
	sale = copySale(sale)
	return &sale, nil
}

func (s *memStore) FindSales(ctx context.Context) ([]*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales := make([]*models.Sale, 0, len(s.state.sales))
	for _, sale := range s.state.sales {
		sale := copySale(sale)
		sales = append(sales, &sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ID < sales[j].ID })
	return sales, nil
}

func (s *memStore) FindSaleDetails(ctx context.Context, saleId int) ([]models.SaleDetail, error) {
	sale, err := s.FindSaleById(ctx, saleId)
	if err != nil {
		return nil, err
	}
	return sale.Details, nil
}

var errStoreUnavailable = errors.New("store unavailable")

type memTx struct {
	state              memState
	failStockUpdateFor int
	locked             []int
}

func (t *memTx) FindCustomerById(ctx context.Context, id int) (*models.Customer, error) {
	c, ok := t.state.customers[id]
	if !ok {
		return nil, models.NewNotFoundError(models.KindCustomer, id)
	}
	return &c, nil
}

// id order, like the mysql store
func (t *memTx) FindProductsByIds(ctx context.Context, ids []int) ([]*models.Product, error) {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	products := make([]*models.Product, 0, len(ids))
	for _, id := range sorted {
		if p, ok := t.state.products[id]; ok {
			t.locked = append(t.locked, id)
			products = append(products, &p)
		}
	}
	return products, nil
}

func (t *memTx) FindProductForUpdate(ctx context.Context, id int) (*models.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, models.NewNotFoundError(models.KindProduct, id)
	}
	t.locked = append(t.locked, id)
	return &p, nil
}

func (t *memTx) UpdateProductStock(ctx context.Context, product *models.Product, stock int) error {
	if t.failStockUpdateFor != 0 && product.ID == t.failStockUpdateFor {
		return errStoreUnavailable
	}
	p := t.state.products[product.ID]
	p.Stock = stock
	t.state.products[product.ID] = p
	product.Stock = stock
	return nil
}

func (t *memTx) FindSaleById(ctx context.Context, id int) (*models.Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return nil, models.NewNotFoundError(models.KindSale, id)
	}
	sale = copySale(sale)
	return &sale, nil
}

func (t *memTx) SaveSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == 0 {
		sale.ID = t.state.nextSaleId
		t.state.nextSaleId++
	}
	for i := range sale.Details {
		d := &sale.Details[i]
		d.SaleId = sale.ID
		if d.ID == 0 {
			d.ID = t.state.nextDetailId
			t.state.nextDetailId++
		}
	}
	t.state.sales[sale.ID] = copySale(*sale)
	return nil
}

func (t *memTx) DeleteSale(ctx context.Context, sale *models.Sale) error {
	delete(t.state.sales, sale.ID)
	return nil
}
