package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/platform/db"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// ErrEmailTaken indicates a signup against an existing email.
var ErrEmailTaken = errors.New("auth: email taken")

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	PrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	CreatePrincipal(ctx context.Context, p Principal) error
	CreateSession(ctx context.Context, rec SessionRecord) error
	SessionByID(ctx context.Context, id string) (SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a principal by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at, updated_at
		 FROM principals WHERE lower(email) = lower($1)`, email).
		Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePrincipal inserts the identity row and its empty profile in one
// transaction. The profile starts without an organization: the principal is
// in the pre-onboarding state until a tenant is created or an invite accepted.
func (r *PGRepository) CreatePrincipal(ctx context.Context, p Principal) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO principals (id, email, name, password_hash, is_active)
			 VALUES ($1, $2, $3, $4, TRUE)`,
			p.ID, p.Email, p.Name, p.PasswordHash); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO profiles (id, organization_id) VALUES ($1, NULL)`, p.ID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// CreateSession persists a new login session in the database for the strong
// verification tier and auditing.
func (r *PGRepository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, principal_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`,
		rec.ID, rec.PrincipalID, time.Now().UTC(), rec.ExpiresAt.UTC(), rec.IP, rec.UserAgent)
	return err
}

// SessionByID fetches the source-of-truth session row.
func (r *PGRepository) SessionByID(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	var ip, ua *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, principal_id, created_at, expires_at, ip, ua FROM sessions WHERE id = $1`, id).
		Scan(&rec.ID, &rec.PrincipalID, &rec.CreatedAt, &rec.ExpiresAt, &ip, &ua)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRecord{}, shared.ErrNotFound
		}
		return SessionRecord{}, err
	}
	if ip != nil {
		rec.IP = *ip
	}
	if ua != nil {
		rec.UserAgent = *ua
	}
	return rec, nil
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry. Run by the
// cleanup job.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)

// PrincipalByID fetches a principal row by id.
func (r *PGRepository) PrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at, updated_at
		 FROM principals WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
