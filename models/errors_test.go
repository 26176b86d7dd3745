package models

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestNotFoundError_Messages(t *testing.T) {
	if got := NewNotFoundError(KindProduct, 7).Error(); got != "Product with id 7 not found." {
		t.Fatalf("unexpected message %q", got)
	}
	got := NewLineItemNotInSaleError(3, 999).Error()
	if got != "In this sale with id 3, there is no sale detail with id 999." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err    error
		target error
	}{
		{NewNotFoundError(KindSale, 1), ErrNotFound},
		{&InsufficientStockError{ProductId: 1}, ErrInsufficientStock},
		{NewValidationError(nil), ErrValidation},
		{&DuplicateError{Kind: KindCategory}, ErrDuplicate},
		{&InUseError{Kind: KindCustomer}, ErrInUse},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("wrapped: %w", c.err)
		if !errors.Is(wrapped, c.target) {
			t.Fatalf("expected %T to match %v", c.err, c.target)
		}
	}

	var stockErr *InsufficientStockError
	wrapped := fmt.Errorf("tx: %w", &InsufficientStockError{ProductId: 4, ProductName: "Mouse", RequestedReduction: 10, AvailableStock: 5})
	if !errors.As(wrapped, &stockErr) || stockErr.AvailableStock != 5 {
		t.Fatalf("expected InsufficientStockError via errors.As")
	}
	if stockErr.Error() != "Insufficient stock for product 'Mouse'. Requested: 10, Available: 5." {
		t.Fatalf("unexpected message %q", stockErr.Error())
	}
}

func TestValidationError_MessageIsSorted(t *testing.T) {
	err := NewValidationError(map[string]string{
		"details":     "must have at least 1 item(s)",
		"customer_id": "is required",
	})
	want := "Validation failed: customer_id is required; details must have at least 1 item(s)"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestDuplicateError_Message(t *testing.T) {
	err := &DuplicateError{Kind: KindCustomer, Field: "dni", Value: "123"}
	if err.Error() != "A customer with the dni '123' already exists." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestMysqlErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !IsDuplicateKeyError(dup) || IsForeignKeyError(dup) {
		t.Fatalf("expected 1062 to be a duplicate key error only")
	}
	fk := &mysqlDriver.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	if !IsForeignKeyError(fk) || IsDuplicateKeyError(fk) {
		t.Fatalf("expected 1451 to be a foreign key error only")
	}
	if IsDuplicateKeyError(errors.New("plain")) || IsForeignKeyError(nil) {
		t.Fatalf("expected non mysql errors to be unclassified")
	}
}
