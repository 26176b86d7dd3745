// seed-admin creates the default accounts if they do not exist yet:
//
//	admin / admin123  roles ADMIN,USER
//	user  / user123   roles USER
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Set SEED_ADMIN_PASSWORD / SEED_USER_PASSWORD to override the default passwords.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/models"
	"github.com/mmdatafocus/sales_backend/utils"
)

type seedAccount struct {
	username string
	password string
	roles    []string
}

func passwordFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	ctx := utils.SetUsernameInContext(context.Background(), "seed-admin")
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !config.SkipMigrations() {
		models.MigrateTable()
	}

	accounts := []seedAccount{
		{username: "admin", password: passwordFromEnv("SEED_ADMIN_PASSWORD", "admin123"), roles: []string{models.RoleAdmin, models.RoleUser}},
		{username: "user", password: passwordFromEnv("SEED_USER_PASSWORD", "user123"), roles: []string{models.RoleUser}},
	}

	for _, account := range accounts {
		user, created, err := models.SeedUser(ctx, account.username, account.password, account.roles...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed %s: %v\n", account.username, err)
			os.Exit(1)
		}
		if created {
			fmt.Printf("created user %s (id=%d roles=%s)\n", user.Username, user.ID, user.Roles)
		} else {
			fmt.Printf("user %s already exists (id=%d), left unchanged\n", user.Username, user.ID)
		}
	}
}
