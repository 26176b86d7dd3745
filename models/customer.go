package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Dni       string    `gorm:"size:20;not null;uniqueIndex" json:"dni"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Email     string    `gorm:"size:100" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Dni      string `json:"dni" binding:"required,max=20"`
	Name     string `json:"name" binding:"required,max=100"`
	LastName string `json:"last_name" binding:"required,max=100"`
	Email    string `json:"email" binding:"omitempty,email,max=100"`
	Phone    string `json:"phone" binding:"omitempty,phone,max=20"`
	Address  string `json:"address" binding:"max=255"`
}

func (input *NewCustomer) validate(ctx context.Context, id int) error {
	input.Dni = strings.TrimSpace(input.Dni)
	input.Name = strings.TrimSpace(input.Name)
	input.LastName = strings.TrimSpace(input.LastName)
	if fields := utils.ValidateStruct(input); fields != nil {
		return NewValidationError(fields)
	}
	if err := utils.ValidateUnique[Customer](ctx, "dni", input.Dni, id); err != nil {
		if strings.HasPrefix(err.Error(), "duplicate") {
			return &DuplicateError{Kind: KindCustomer, Field: "DNI", Value: input.Dni}
		}
		return err
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		Dni:      input.Dni,
		Name:     input.Name,
		LastName: input.LastName,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindCustomer, Field: "DNI", Value: input.Dni}
		}
		return nil, err
	}
	clearCustomerCache(customer.ID)
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	customer, err := FetchModel[Customer](ctx, KindCustomer, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"Dni":      input.Dni,
		"Name":     input.Name,
		"LastName": input.LastName,
		"Email":    input.Email,
		"Phone":    input.Phone,
		"Address":  input.Address,
	}).Error
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, &DuplicateError{Kind: KindCustomer, Field: "DNI", Value: input.Dni}
		}
		return nil, err
	}
	clearCustomerCache(id)
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	customer, err := FetchModel[Customer](ctx, KindCustomer, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Sale](ctx, "customer_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &InUseError{Kind: KindCustomer, Id: id, Message: "Cannot delete customer with associated sales"}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		if IsForeignKeyError(err) {
			return nil, &InUseError{Kind: KindCustomer, Id: id, Message: "Cannot delete customer with associated sales"}
		}
		return nil, err
	}
	clearCustomerCache(id)
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return GetResource[Customer](ctx, KindCustomer, id)
}

func GetCustomers(ctx context.Context) ([]*Customer, error) {
	return ListAllResource[Customer](ctx, "last_name", "name")
}

func clearCustomerCache(id int) {
	if err := utils.RemoveRedisItems[Customer](id); err != nil {
		cacheWarning("clearCustomerCache", utils.RedisKey[Customer](id), err)
	}
}
