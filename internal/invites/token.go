package invites

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrBadToken covers every token defect: bad signature, wrong shape, expiry.
// Public endpoints surface it as a generic invalid-invite response.
var ErrBadToken = errors.New("invites: invalid token")

// TokenCodec signs the invite tokens embedded in public accept URLs. The
// token itself only proves the link was issued by us; the invite row remains
// the source of truth for expiry and acceptance state.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec constructs the codec.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

type inviteClaims struct {
	InviteID string `json:"inv"`
	jwt.RegisteredClaims
}

// Sign produces a token for the invite, bounded by the invite's expiry.
func (c *TokenCodec) Sign(invite Invite) (string, error) {
	claims := inviteClaims{
		InviteID: invite.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   invite.Email,
			ExpiresAt: jwt.NewNumericDate(invite.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the token and returns the embedded invite id.
func (c *TokenCodec) Verify(token string) (uuid.UUID, error) {
	var claims inviteClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrBadToken
	}
	id, err := uuid.Parse(claims.InviteID)
	if err != nil {
		return uuid.Nil, ErrBadToken
	}
	return id, nil
}
