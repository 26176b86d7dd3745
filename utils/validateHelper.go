package utils

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/sales_backend/config"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator shares gin's `binding` tag so request structs are declared once.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.SetTagName("binding")
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidatePhoneNumber(fl.Field().String(), PhoneRegion()) == nil
		})
		validate = v
	})
	return validate
}

// ValidateStruct returns field -> message for every failed rule, nil when valid.
func ValidateStruct(input any) map[string]string {
	err := Validator().Struct(input)
	if err == nil {
		return nil
	}
	return ProcessValidationErrors(err)
}

func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"": err.Error()}
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[fieldPath(ve)] = validationMessage(ve)
	}
	return errorResponse
}

// strip the root struct name: "NewSale.details[0].quantity" -> "details[0].quantity"
func fieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ve.Field()
}

func validationMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email format"
	case "phone":
		return "must be a valid phone number"
	case "gt":
		return "must be greater than " + ve.Param()
	case "gte":
		return "must not be less than " + ve.Param()
	case "min":
		return "must have at least " + ve.Param() + " item(s)"
	case "max":
		return "must be at most " + ve.Param() + " characters"
	case "oneof":
		return "must be one of " + ve.Param()
	}
	return "failed on " + ve.Tag()
}

// check if id exists, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// returns "duplicate <column>" when another row (not exceptId) holds value
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
