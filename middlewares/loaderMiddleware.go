package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

var errNoLoaders = errors.New("dataloaders are not attached to the request context")

type ProductReader interface {
	ReadProducts(ctx context.Context, ids []int) ([]models.Product, error)
}

type CustomerReader interface {
	ReadCustomers(ctx context.Context, ids []int) ([]models.Customer, error)
}

// Loaders batch the product and customer lookups of one request.
type Loaders struct {
	productLoader  *dataloader.Loader[int, *models.Product]
	customerLoader *dataloader.Loader[int, *models.Customer]
}

// NewLoaders instantiates data loaders reading through the redis cache into conn.
func NewLoaders(conn *gorm.DB) *Loaders {
	return NewLoadersWithReaders(&productReader{db: conn}, &customerReader{db: conn})
}

func NewLoadersWithReaders(products ProductReader, customers CustomerReader) *Loaders {
	return &Loaders{
		productLoader: dataloader.NewBatchedLoader(
			batchFunc(products.ReadProducts, models.KindProduct),
			dataloader.WithWait[int, *models.Product](time.Millisecond),
		),
		customerLoader: dataloader.NewBatchedLoader(
			batchFunc(customers.ReadCustomers, models.KindCustomer),
			dataloader.WithWait[int, *models.Customer](time.Millisecond),
		),
	}
}

// LoaderMiddleware attaches fresh loaders to every request.
func LoaderMiddleware(newLoaders func() *Loaders) gin.HandlerFunc {
	if newLoaders == nil {
		newLoaders = func() *Loaders { return NewLoaders(config.GetDB()) }
	}
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), loadersKey, newLoaders())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

func batchFunc[T models.Identifier](read func(context.Context, []int) ([]T, error), kind models.ResourceKind) dataloader.BatchFunc[int, *T] {
	return func(ctx context.Context, ids []int) []*dataloader.Result[*T] {
		results, err := read(ctx, ids)
		if err != nil {
			return handleError[*T](len(ids), err)
		}
		return generateLoaderResults(results, ids, kind)
	}
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns rows into dataloader results in ids order, NotFoundError for missing ids
func generateLoaderResults[T models.Identifier](results []T, ids []int, kind models.ResourceKind) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for i := range results {
		resultMap[results[i].GetId()] = &results[i]
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data, ok := resultMap[id]
		if !ok {
			loaderResults = append(loaderResults, &dataloader.Result[*T]{Error: models.NewNotFoundError(kind, id)})
			continue
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: data})
	}
	return loaderResults
}

// readThroughCache serves ids from redis when possible and loads the rest with one IN query.
func readThroughCache[T models.Identifier](ctx context.Context, db *gorm.DB, ids []int) ([]T, error) {
	results := make([]T, 0, len(ids))
	missing := ids
	useCache := config.ProductCacheEnabled()
	if useCache {
		missing = make([]int, 0, len(ids))
		for _, id := range ids {
			cached, err := utils.RetrieveRedis[T](id)
			if err != nil || cached == nil {
				missing = append(missing, id)
				continue
			}
			results = append(results, *cached)
		}
	}
	if len(missing) == 0 {
		return results, nil
	}

	var fetched []T
	if err := db.WithContext(ctx).Where("id IN ?", missing).Find(&fetched).Error; err != nil {
		return nil, err
	}
	if useCache {
		for i := range fetched {
			if err := utils.StoreRedis[T](&fetched[i], fetched[i].GetId()); err != nil {
				config.GetLogger().WithField("module", "middlewares").Warn("redis cache: " + err.Error())
				break
			}
		}
	}
	return append(results, fetched...), nil
}
