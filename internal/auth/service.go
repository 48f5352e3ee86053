package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// Service wraps authentication business rules.
//
// Identity resolution is two-tier. The cheap tier reads the principal id
// off the Redis-backed session and is what the route-gating middleware uses;
// it never touches Postgres. VerifySession is the strong tier: a round-trip
// against the sessions table, required before trusting identity for a write
// or for fetching personal data. The gating layer never falls back from the
// cheap tier to the strong one; no session on the cheap tier means
// unauthenticated, full stop.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	principal, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !principal.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return principal, nil
}

// Register creates a new principal with a hashed password. The new account
// has no tenant; the caller routes it to onboarding.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("auth: email required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	principal := Principal{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.CreatePrincipal(ctx, principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, principalID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, SessionRecord{
		ID:          id,
		PrincipalID: principalID,
		ExpiresAt:   expiresAt,
		IP:          ip,
		UserAgent:   ua,
	})
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// VerifySession is the strong identity check: it confirms the session against
// the source of truth and that the account is still active. Callers invoke it
// before privileged mutations; the route-gating path does not.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (*Principal, error) {
	rec, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrSessionExpired
		}
		return nil, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, shared.ErrSessionExpired
	}
	principal, err := s.repo.PrincipalByID(ctx, rec.PrincipalID)
	if err != nil {
		return nil, shared.ErrSessionExpired
	}
	if !principal.IsActive {
		return nil, shared.ErrSessionExpired
	}
	return principal, nil
}

// VerifySessionID adapts VerifySession for callers that only need the check.
func (s *Service) VerifySessionID(ctx context.Context, sessionID string) error {
	_, err := s.VerifySession(ctx, sessionID)
	return err
}
