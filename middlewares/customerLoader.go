package middlewares

import (
	"context"

	"github.com/mmdatafocus/sales_backend/models"
	"gorm.io/gorm"
)

type customerReader struct {
	db *gorm.DB
}

func (r *customerReader) ReadCustomers(ctx context.Context, ids []int) ([]models.Customer, error) {
	return readThroughCache[models.Customer](ctx, r.db, ids)
}

func GetCustomer(ctx context.Context, id int) (*models.Customer, error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, errNoLoaders
	}
	return loaders.customerLoader.Load(ctx, id)()
}

func GetCustomers(ctx context.Context, ids []int) ([]*models.Customer, []error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, []error{errNoLoaders}
	}
	return loaders.customerLoader.LoadMany(ctx, ids)()
}
