package utils

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
)

func TestUniqueSlice_KeepsFirstOccurrenceOrder(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	if DereferencePtr[int](nil) != 0 || DereferencePtr[int](nil, 7) != 7 {
		t.Fatalf("unexpected default handling")
	}
	v := 4
	if DereferencePtr(&v, 7) != 4 {
		t.Fatalf("expected pointed value")
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+1 650-253-0000", "US"); err != nil {
		t.Fatalf("expected valid number, got %v", err)
	}
	if err := ValidatePhoneNumber("12", "US"); err == nil {
		t.Fatalf("expected error for too short number")
	}
	if err := ValidatePhoneNumber("not a phone", "US"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResourceLock_WithoutRedis(t *testing.T) {
	config.SetRedisClient(nil)
	lock, err := ResourceLock(context.Background(), "SaleLock", 1, time.Second, "utils", "test")
	if lock != nil || err != nil {
		t.Fatalf("expected no-op lock without redis, got %v %v", lock, err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetActorFromContext(ctx) != "SYSTEM" {
		t.Fatalf("expected SYSTEM actor without user")
	}
	ctx = SetUsernameInContext(ctx, "admin")
	ctx = SetRolesInContext(ctx, []string{"ADMIN"})
	ctx = SetUserIdInContext(ctx, 7)
	if id, ok := GetUserIdFromContext(ctx); !ok || id != 7 {
		t.Fatalf("expected user id 7, got %d", id)
	}
	if GetActorFromContext(ctx) != "admin" {
		t.Fatalf("expected admin actor")
	}
	if roles, ok := GetRolesFromContext(ctx); !ok || roles[0] != "ADMIN" {
		t.Fatalf("unexpected roles %v", roles)
	}
}
