package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
)

// RedisSaleLocker holds "SaleLock:$id" in redis for the duration of an update or delete.
type RedisSaleLocker struct {
	ttl time.Duration
}

func NewRedisSaleLocker(ttl time.Duration) *RedisSaleLocker {
	return &RedisSaleLocker{ttl: ttl}
}

func (l *RedisSaleLocker) LockSale(ctx context.Context, saleId int) (func(), error) {
	lock, err := utils.ResourceLock(ctx, "SaleLock", saleId, l.ttl, moduleName, "LockSale")
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return func() {}, nil
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			config.LogError(config.GetLogger(), moduleName, "LockSale", "release sale lock", saleId, err)
		}
	}, nil
}
