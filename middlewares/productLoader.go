package middlewares

import (
	"context"

	"github.com/mmdatafocus/sales_backend/models"
	"gorm.io/gorm"
)

type productReader struct {
	db *gorm.DB
}

func (r *productReader) ReadProducts(ctx context.Context, ids []int) ([]models.Product, error) {
	return readThroughCache[models.Product](ctx, r.db, ids)
}

func GetProduct(ctx context.Context, id int) (*models.Product, error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, errNoLoaders
	}
	return loaders.productLoader.Load(ctx, id)()
}

func GetProducts(ctx context.Context, ids []int) ([]*models.Product, []error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, []error{errNoLoaders}
	}
	return loaders.productLoader.LoadMany(ctx, ids)()
}
