package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
)

type Category struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=255"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCategory) validate(ctx context.Context, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if fields := utils.ValidateStruct(input); fields != nil {
		return NewValidationError(fields)
	}
	if err := utils.ValidateUnique[Category](ctx, "name", input.Name, id); err != nil {
		if strings.HasPrefix(err.Error(), "duplicate") {
			return &DuplicateError{Kind: KindCategory, Field: "name", Value: input.Name}
		}
		return err
	}
	return nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	category := Category{
		Name:        input.Name,
		Description: input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindCategory, Field: "name", Value: input.Name}
		}
		return nil, err
	}
	clearCategoryCache(category.ID)
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {
	category, err := FetchModel[Category](ctx, KindCategory, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Description": input.Description,
	}).Error
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindCategory, Field: "name", Value: input.Name}
		}
		return nil, err
	}
	clearCategoryCache(id)
	return category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	category, err := FetchModel[Category](ctx, KindCategory, id)
	if err != nil {
		return nil, err
	}

	// don't delete if category is used by a product
	count, err := utils.ResourceCountWhere[Product](ctx, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &InUseError{Kind: KindCategory, Id: id, Message: "Cannot delete category: it is associated with existing products."}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		if IsForeignKeyError(err) {
			return nil, &InUseError{Kind: KindCategory, Id: id, Message: "Cannot delete category: it is associated with existing products."}
		}
		return nil, err
	}
	clearCategoryCache(id)
	return category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	return GetResource[Category](ctx, KindCategory, id)
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	return ListAllResource[Category](ctx, "name")
}

func clearCategoryCache(id int) {
	if err := utils.RemoveRedisItems[Category](id); err != nil {
		cacheWarning("clearCategoryCache", utils.RedisKey[Category](id), err)
	}
}
