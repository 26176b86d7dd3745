package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RevisionInsert = "INSERT"
	RevisionUpdate = "UPDATE"
	RevisionDelete = "DELETE"
)

// ProductRevision is a snapshot of a product after each change.
type ProductRevision struct {
	ID           int             `gorm:"primary_key" json:"revision_id"`
	ProductId    int             `gorm:"index;not null" json:"id"`
	RevisionType string          `gorm:"size:10;not null" json:"revision_type"`
	Username     string          `gorm:"size:100;not null" json:"username"`
	Name         string          `gorm:"size:150" json:"name"`
	Description  string          `gorm:"size:255" json:"description"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Stock        int             `json:"stock"`
	CategoryId   int             `json:"category_id"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"revision_date"`
}

// RecordProductRevision writes the snapshot inside tx; the actor comes from tx's context.
func RecordProductRevision(tx *gorm.DB, revisionType string, p *Product) error {
	revision := ProductRevision{
		ProductId:    p.ID,
		RevisionType: revisionType,
		Username:     utils.GetActorFromContext(tx.Statement.Context),
		Name:         p.Name,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		Stock:        p.Stock,
		CategoryId:   p.CategoryId,
	}
	return tx.Create(&revision).Error
}

// GetProductRevisions lists revisions oldest first. A product that never existed is NotFound.
func GetProductRevisions(ctx context.Context, productId int) ([]*ProductRevision, error) {
	db := config.GetDB()
	results := make([]*ProductRevision, 0)
	if err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		if err := utils.ValidateResourceId[Product](ctx, productId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, NewNotFoundError(KindProduct, productId)
			}
			return nil, err
		}
	}
	return results, nil
}
