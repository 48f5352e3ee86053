package invites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
)

// Repository provides PostgreSQL backed persistence for invites.
//
// Reads on the public validate/accept path go through InviteByID on the raw
// pool: the caller holds a signed token, not a tenant context. Tenant-facing
// listings go through the scoped helper instead.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inviteColumns = `id, tenant_id, email, role, COALESCE(department_ids, '{}'), invited_by, expires_at, accepted_at, created_at`

// Create inserts the invite.
func (r *Repository) Create(ctx context.Context, invite Invite) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invites (id, tenant_id, email, role, department_ids, invited_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invite.ID, invite.TenantID, invite.Email, string(invite.Role),
		invite.DepartmentIDs, invite.InvitedBy, invite.ExpiresAt)
	return err
}

// InviteByID fetches an invite row by id.
func (r *Repository) InviteByID(ctx context.Context, id uuid.UUID) (Invite, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id)
	return scanInvite(row)
}

// MarkAccepted stamps the invite. The WHERE clause keeps the update
// idempotent under racing acceptances: only the first writer flips the row,
// and the losing writer still converges because the role upsert already ran.
func (r *Repository) MarkAccepted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE invites SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`, id)
	return err
}

// ListForTenant returns the tenant's pending and accepted invites through the
// scoped helper, newest first.
func (r *Repository) ListForTenant(ctx context.Context, scope *tenancy.Scoped) ([]Invite, error) {
	rows, err := scope.Query(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE tenant_id = $1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, invite)
	}
	return list, rows.Err()
}

// DeleteExpired removes unaccepted invites past expiry. Run by the sweep job.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM invites WHERE accepted_at IS NULL AND expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanInvite(row pgx.Row) (Invite, error) {
	var invite Invite
	var role string
	err := row.Scan(&invite.ID, &invite.TenantID, &invite.Email, &role,
		&invite.DepartmentIDs, &invite.InvitedBy, &invite.ExpiresAt,
		&invite.AcceptedAt, &invite.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invite{}, shared.ErrNotFound
		}
		return Invite{}, err
	}
	invite.Role = authz.ParseRole(role)
	return invite, nil
}
