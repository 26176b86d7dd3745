package models

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/mmdatafocus/sales_backend/config"
)

func useRedisMock(t *testing.T) redismock.ClientMock {
	t.Helper()
	client, mock := redismock.NewClientMock()
	config.SetRedisClient(client)
	t.Cleanup(func() { config.SetRedisClient(nil) })
	return mock
}

func TestGetResource_CacheHit(t *testing.T) {
	t.Setenv("PRODUCT_CACHE_ENABLED", "true")
	mock := useRedisMock(t)
	mock.ExpectGet("Product:1").SetVal(`{"id":1,"name":"Laptop","unit_price":"999.99","stock":4,"category_id":2}`)

	product, err := GetProduct(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if product.Name != "Laptop" || product.Stock != 4 || product.UnitPrice.String() != "999.99" {
		t.Fatalf("unexpected cached product %+v", product)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}

func TestClearProductCache(t *testing.T) {
	mock := useRedisMock(t)
	mock.ExpectDel("Product:1", "Product:2", "ProductList").SetVal(3)

	ClearProductCache(1, 2)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}
