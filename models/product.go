package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Name        string          `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Description string          `gorm:"size:255" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_price"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	CategoryId  int             `gorm:"index;not null" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryId;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name        string           `json:"name" binding:"required,max=150"`
	Description string           `json:"description" binding:"max=255"`
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"required"`
	Stock       *int             `json:"stock" binding:"required,gte=0"`
	CategoryId  int              `json:"category_id" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	fields := utils.ValidateStruct(input)
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		if fields == nil {
			fields = make(map[string]string)
		}
		fields["unit_price"] = "must not be negative"
	}
	if fields != nil {
		return NewValidationError(fields)
	}

	if err := utils.ValidateResourceId[Category](ctx, input.CategoryId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return NewNotFoundError(KindCategory, input.CategoryId)
		}
		return err
	}
	if err := utils.ValidateUnique[Product](ctx, "name", input.Name, id); err != nil {
		if strings.HasPrefix(err.Error(), "duplicate") {
			return &DuplicateError{Kind: KindProduct, Field: "name", Value: input.Name}
		}
		return err
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		Name:        input.Name,
		Description: input.Description,
		UnitPrice:   *input.UnitPrice,
		Stock:       *input.Stock,
		CategoryId:  input.CategoryId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		return RecordProductRevision(tx, RevisionInsert, &product)
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindProduct, Field: "name", Value: input.Name}
		}
		return nil, err
	}
	ClearProductCache(product.ID)
	return &product, nil
}

// UpdateProduct overwrites catalog fields and stock (manual stock correction).
func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	if _, err := FetchModel[Product](ctx, KindProduct, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	var product Product
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError(KindProduct, id)
			}
			return err
		}
		product.Name = input.Name
		product.Description = input.Description
		product.UnitPrice = *input.UnitPrice
		product.Stock = *input.Stock
		product.CategoryId = input.CategoryId
		if err := tx.Model(&product).Select("Name", "Description", "UnitPrice", "Stock", "CategoryId").Updates(&product).Error; err != nil {
			return err
		}
		return RecordProductRevision(tx, RevisionUpdate, &product)
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindProduct, Field: "name", Value: input.Name}
		}
		return nil, err
	}
	ClearProductCache(id)
	return &product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	product, err := FetchModel[Product](ctx, KindProduct, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[SaleDetail](ctx, "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &InUseError{Kind: KindProduct, Id: id, Message: "Cannot delete product with associated sales"}
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(product).Error; err != nil {
			return err
		}
		return RecordProductRevision(tx, RevisionDelete, product)
	})
	if err != nil {
		if IsForeignKeyError(err) {
			return nil, &InUseError{Kind: KindProduct, Id: id, Message: "Cannot delete product with associated sales"}
		}
		return nil, err
	}
	ClearProductCache(id)
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, KindProduct, id)
}

func GetProducts(ctx context.Context) ([]*Product, error) {
	return ListAllResource[Product](ctx, "name")
}

// ClearProductCache drops Product:$id for each id and the product list.
func ClearProductCache(ids ...int) {
	if err := utils.RemoveRedisItems[Product](ids...); err != nil {
		cacheWarning("ClearProductCache", utils.RedisListKey[Product](), err)
	}
}
