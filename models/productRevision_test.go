package models

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/sales_backend/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// dryRunDB never reaches a server; queries return no rows unless a callback fails them.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "sales:secret@tcp(127.0.0.1:1)/sales?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry run db: %v", err)
	}
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })
	return db
}

func TestGetProductRevisions_MissingProductIsNotFound(t *testing.T) {
	dryRunDB(t)

	_, err := GetProductRevisions(context.Background(), 5)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Kind != KindProduct || notFound.Id != 5 {
		t.Fatalf("expected product 5 not found, got %v", err)
	}
}

func TestGetProductRevisions_LookupFailureIsReturned(t *testing.T) {
	db := dryRunDB(t)
	errDown := errors.New("connection refused")
	err := db.Callback().Query().Before("gorm:query").Register("fail_product_lookup", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "Product" {
			_ = tx.AddError(errDown)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = GetProductRevisions(context.Background(), 5)
	if !errors.Is(err, errDown) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup failure must not be reported as not found")
	}
}
