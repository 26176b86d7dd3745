package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/sales_backend/config"
	"github.com/ttacon/libphonenumber"
)

// region used when a phone number has no leading +country code
func PhoneRegion() string {
	region := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_REGION")))
	if region == "" {
		return "US"
	}
	return region
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}

	if !libphonenumber.IsPossibleNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

func NewTrue() *bool {
	b := true
	return &b
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// ResourceLock obtains "lockType:id" from redislock. The caller must release it.
// Returns (nil, nil) when redis is not configured.
func ResourceLock(ctx context.Context, lockType string, id int, ttl time.Duration, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lockKey := fmt.Sprintf("%s:%d", lockType, id)
	lock, err := locker.Obtain(ctx, lockKey, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(ttl/(100*time.Millisecond))),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock", lockKey, err)
		return nil, ErrLockNotObtained
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock", lockKey, err)
		return nil, err
	}
	return lock, nil
}
