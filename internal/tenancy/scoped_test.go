package tenancy

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

func TestScopedForRefusesZeroTenant(t *testing.T) {
	if _, err := ScopedFor(nil, uuid.Nil); !errors.Is(err, shared.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestScopedForBindsTenant(t *testing.T) {
	tenant := uuid.New()
	scope, err := ScopedFor(nil, tenant)
	if err != nil {
		t.Fatalf("scoped: %v", err)
	}
	if scope.TenantID() != tenant {
		t.Fatalf("expected bound tenant %s, got %s", tenant, scope.TenantID())
	}
}

func TestVerifyOwnedMismatchIsNotFound(t *testing.T) {
	scope, err := ScopedFor(nil, uuid.New())
	if err != nil {
		t.Fatalf("scoped: %v", err)
	}
	// Cross-tenant access must read as absence, not as a permission error.
	if err := scope.VerifyOwned(uuid.New()); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := scope.VerifyOwned(scope.TenantID()); err != nil {
		t.Fatalf("owned row must verify, got %v", err)
	}
}

func TestPrependPlacesTenantFirst(t *testing.T) {
	tenant := uuid.New()
	args := prepend(tenant, []any{"a", 2})
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	if args[0] != tenant {
		t.Fatalf("tenant id must be bound as the first argument")
	}
	if args[1] != "a" || args[2] != 2 {
		t.Fatalf("caller arguments must follow in order: %v", args)
	}
}
