package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

type ResourceKind string

const (
	KindCategory ResourceKind = "Category"
	KindCustomer ResourceKind = "Customer"
	KindProduct  ResourceKind = "Product"
	KindSale     ResourceKind = "Sale"
	KindLineItem ResourceKind = "SaleDetail"
	KindUser     ResourceKind = "User"
)

// sentinels for errors.Is; every typed error below matches one of them
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicate          = errors.New("duplicate resource")
	ErrInUse              = errors.New("resource in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type NotFoundError struct {
	Kind ResourceKind
	Id   int
	// owning sale, only set for KindLineItem
	SaleId int
}

func NewNotFoundError(kind ResourceKind, id int) *NotFoundError {
	return &NotFoundError{Kind: kind, Id: id}
}

func NewLineItemNotInSaleError(saleId int, detailId int) *NotFoundError {
	return &NotFoundError{Kind: KindLineItem, Id: detailId, SaleId: saleId}
}

func (e *NotFoundError) Error() string {
	if e.Kind == KindLineItem {
		return fmt.Sprintf("In this sale with id %d, there is no sale detail with id %d.", e.SaleId, e.Id)
	}
	return fmt.Sprintf("%s with id %d not found.", e.Kind, e.Id)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InsufficientStockError struct {
	ProductId          int
	ProductName        string
	RequestedReduction int
	AvailableStock     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product '%s'. Requested: %d, Available: %d.",
		e.ProductName, e.RequestedReduction, e.AvailableStock)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "Validation failed", Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type DuplicateError struct {
	Kind  ResourceKind
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("A %s with the %s '%s' already exists.", strings.ToLower(string(e.Kind)), e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

type InUseError struct {
	Kind    ResourceKind
	Id      int
	Message string
}

func (e *InUseError) Error() string { return e.Message }

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

// mysql 1062
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// mysql 1451 (parent row referenced) / 1452 (child row has no parent)
func IsForeignKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && (mysqlErr.Number == 1451 || mysqlErr.Number == 1452)
}
