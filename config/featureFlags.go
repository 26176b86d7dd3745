package config

import (
	"time"
)

// SaleLockEnabled makes sale update/delete hold a per-sale redis lock for the
// duration of the database transaction.
//
// Set via env:
// - SALE_LOCK_ENABLED=true
func SaleLockEnabled() bool {
	return boolFromEnv("SALE_LOCK_ENABLED", false)
}

// SaleLockTTL bounds how long a per-sale lock may be held.
//
// Set via env:
// - SALE_LOCK_TTL_SECONDS (default 30)
func SaleLockTTL() time.Duration {
	return time.Duration(intFromEnv("SALE_LOCK_TTL_SECONDS", 30)) * time.Second
}

// ProductCacheEnabled turns on the redis read-through cache for products and categories.
//
// Set via env:
// - PRODUCT_CACHE_ENABLED=false to disable (default true)
func ProductCacheEnabled() bool {
	return boolFromEnv("PRODUCT_CACHE_ENABLED", true)
}

// ProductCacheRedeleteDelay is how long after a stock change the product cache
// keys are dropped a second time, evicting copies written back by reads that
// started before the commit. Zero disables the second drop.
//
// Set via env:
// - PRODUCT_CACHE_REDELETE_MS (default 500)
func ProductCacheRedeleteDelay() time.Duration {
	return time.Duration(intFromEnv("PRODUCT_CACHE_REDELETE_MS", 500)) * time.Millisecond
}

// SkipMigrations disables AutoMigrate on startup.
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS", false)
}
