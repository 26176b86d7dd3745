package workflow

import (
	"context"

	"github.com/mmdatafocus/sales_backend/models"
)

// SaleTx is the unit of work of one sale operation. Everything read or written
// through it commits or rolls back together.
type SaleTx interface {
	ProductLedger
	FindCustomerById(ctx context.Context, id int) (*models.Customer, error)
	// locked rows for the ids that exist; missing ids are simply absent
	FindProductsByIds(ctx context.Context, ids []int) ([]*models.Product, error)
	// sale with its details, NotFoundError when missing
	FindSaleById(ctx context.Context, id int) (*models.Sale, error)
	// upserts the sale and its details, deleting details no longer in sale.Details
	SaveSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, sale *models.Sale) error
}

type SaleStore interface {
	// fn's error rolls everything back and is returned as is
	Transaction(ctx context.Context, fn func(tx SaleTx) error) error
	FindSaleById(ctx context.Context, id int) (*models.Sale, error)
	FindSales(ctx context.Context) ([]*models.Sale, error)
	// NotFoundError for the sale when it does not exist
	FindSaleDetails(ctx context.Context, saleId int) ([]models.SaleDetail, error)
}
