package workflow

import (
	"context"

	"github.com/mmdatafocus/sales_backend/models"
)

// ProductLedger is the product side of a sale transaction.
type ProductLedger interface {
	// row-locked read, NotFoundError when missing
	FindProductForUpdate(ctx context.Context, id int) (*models.Product, error)
	// persists stock and sets product.Stock
	UpdateProductStock(ctx context.Context, product *models.Product, stock int) error
}

type AppliedDelta struct {
	ProductId int
	Delta     int
	// stock after the delta
	Stock int
}

// StockReconciler applies signed stock deltas inside one transaction and never
// lets a product's stock go below zero.
type StockReconciler struct {
	ledger   ProductLedger
	products map[int]*models.Product
	applied  []AppliedDelta
}

// NewStockReconciler takes products already loaded (and locked) by the caller so
// they are not read twice.
func NewStockReconciler(ledger ProductLedger, loaded map[int]*models.Product) *StockReconciler {
	products := make(map[int]*models.Product, len(loaded))
	for id, p := range loaded {
		products[id] = p
	}
	return &StockReconciler{ledger: ledger, products: products}
}

// ApplyDelta adds delta to the product's stock. A result below zero fails with
// InsufficientStockError and leaves the stock untouched. A zero delta is a no-op.
func (r *StockReconciler) ApplyDelta(ctx context.Context, productId int, delta int) error {
	if delta == 0 {
		return nil
	}
	product, err := r.product(ctx, productId)
	if err != nil {
		return err
	}

	newStock := product.Stock + delta
	if newStock < 0 {
		return &models.InsufficientStockError{
			ProductId:          product.ID,
			ProductName:        product.Name,
			RequestedReduction: -delta,
			AvailableStock:     product.Stock,
		}
	}
	if err := r.ledger.UpdateProductStock(ctx, product, newStock); err != nil {
		return err
	}
	r.applied = append(r.applied, AppliedDelta{ProductId: product.ID, Delta: delta, Stock: newStock})
	return nil
}

// Restore gives a removed line item's quantity back to its product.
func (r *StockReconciler) Restore(ctx context.Context, detail models.SaleDetail) error {
	return r.ApplyDelta(ctx, detail.ProductId, detail.Quantity)
}

// Consume applies the stock effect of a New or Matched line item.
// A Matched item whose product changed releases the old product first.
func (r *StockReconciler) Consume(ctx context.Context, item ClassifiedItem) error {
	req := item.Request
	if item.Kind == ChangeNew || item.Existing == nil {
		return r.ApplyDelta(ctx, req.ProductId, -req.Quantity)
	}

	old := item.Existing
	if old.ProductId == req.ProductId {
		return r.ApplyDelta(ctx, req.ProductId, old.Quantity-req.Quantity)
	}
	if err := r.ApplyDelta(ctx, old.ProductId, old.Quantity); err != nil {
		return err
	}
	return r.ApplyDelta(ctx, req.ProductId, -req.Quantity)
}

func (r *StockReconciler) Applied() []AppliedDelta {
	return r.applied
}

// ids of every product whose stock changed, first-touch order
func (r *StockReconciler) TouchedProductIds() []int {
	seen := make(map[int]bool, len(r.applied))
	ids := make([]int, 0, len(r.applied))
	for _, a := range r.applied {
		if !seen[a.ProductId] {
			seen[a.ProductId] = true
			ids = append(ids, a.ProductId)
		}
	}
	return ids
}

func (r *StockReconciler) product(ctx context.Context, id int) (*models.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	p, err := r.ledger.FindProductForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	r.products[id] = p
	return p, nil
}
