package utils

import (
	"context"

	"github.com/mmdatafocus/sales_backend/appctx"
)

var (
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyRoles         = appctx.ContextKeyRoles
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetRolesFromContext(ctx context.Context) ([]string, bool) {
	return appctx.GetStrings(ctx, ContextKeyRoles)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetRolesInContext(ctx context.Context, roles []string) context.Context {
	return appctx.Set(ctx, ContextKeyRoles, roles)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// actor name for audit rows, SYSTEM when no user is attached
func GetActorFromContext(ctx context.Context) string {
	if username, ok := GetUsernameFromContext(ctx); ok && username != "" {
		return username
	}
	return "SYSTEM"
}
