package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// Scoped is a tenant-bound query helper. Route-level authorization does not
// guarantee row isolation, so every repository touching tenant data is built
// on Scoped instead of the raw pool: the constructor demands a tenant id and
// every statement it runs receives that id as its first argument. An unscoped
// tenant query is therefore a missing type, not a forgotten predicate.
//
// Convention: SQL passed to Query/QueryRow/Exec must bind the scope as $1
// (`tenant_id = $1`, or a join onto an already-scoped parent); caller
// arguments start at $2.
type Scoped struct {
	pool     *pgxpool.Pool
	tenantID uuid.UUID
}

// ScopedFor binds the pool to a tenant. A zero tenant id is refused rather
// than silently producing an unscoped helper.
func ScopedFor(pool *pgxpool.Pool, tenantID uuid.UUID) (*Scoped, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	return &Scoped{pool: pool, tenantID: tenantID}, nil
}

// TenantID returns the bound tenant.
func (s *Scoped) TenantID() uuid.UUID {
	return s.tenantID
}

// Query runs a statement with the tenant id bound as $1.
func (s *Scoped) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.pool.Query(ctx, sql, prepend(s.tenantID, args)...)
}

// QueryRow runs a single-row statement with the tenant id bound as $1.
func (s *Scoped) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.pool.QueryRow(ctx, sql, prepend(s.tenantID, args)...)
}

// Exec runs a mutation with the tenant id bound as $1.
func (s *Scoped) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, sql, prepend(s.tenantID, args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// VerifyOwned compares a fetched row's tenant id against the scope. A
// mismatch resolves to ErrNotFound, never a permission error, so the response
// does not confirm that the row exists in another tenant.
func (s *Scoped) VerifyOwned(rowTenantID uuid.UUID) error {
	if rowTenantID != s.tenantID {
		return shared.ErrNotFound
	}
	return nil
}

func prepend(tenantID uuid.UUID, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, tenantID)
	return append(out, args...)
}
