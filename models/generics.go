package models

import (
	"context"
	"errors"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// fetch model from db, NotFoundError{kind, id} when missing
func FetchModel[T any](ctx context.Context, kind ResourceKind, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(kind, id)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// first find in redis, then in db, cache result
// (may return NotFoundError)
func GetResource[T any](ctx context.Context, kind ResourceKind, id int, associations ...string) (*T, error) {
	useCache := config.ProductCacheEnabled()
	if useCache {
		result, err := utils.RetrieveRedis[T](id)
		if err != nil {
			cacheWarning("GetResource", utils.RedisKey[T](id), err)
		} else if result != nil {
			return result, nil
		}
	}

	result, err := FetchModel[T](ctx, kind, id, associations...)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := utils.StoreRedis[T](result, id); err != nil {
			cacheWarning("GetResource", utils.RedisKey[T](id), err)
		}
	}
	return result, nil
}

// list all resources, redis or db, cache result
func ListAllResource[T any](ctx context.Context, orders ...string) ([]*T, error) {
	useCache := config.ProductCacheEnabled()
	if useCache {
		results, err := utils.RetrieveRedisList[T]()
		if err != nil {
			cacheWarning("ListAllResource", utils.RedisListKey[T](), err)
		} else if results != nil {
			return results, nil
		}
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	results := make([]*T, 0)
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}

	if useCache {
		if err := utils.StoreRedisList[T](results); err != nil {
			cacheWarning("ListAllResource", utils.RedisListKey[T](), err)
		}
	}
	return results, nil
}

// cache failures never fail a request
func cacheWarning(funcName string, key string, err error) {
	config.GetLogger().WithFields(logrus.Fields{
		"module":   "models",
		"funcName": funcName,
		"key":      key,
	}).Warn("redis cache: " + err.Error())
}
