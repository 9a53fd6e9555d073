package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessClaims is the payload minted into the signed access credential and
// recovered from it on validation. TokenID correlates the credential to its
// storage record without exposing the record's primary key.
type AccessClaims struct {
	UserID      uuid.UUID `json:"user_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	RoleID      uuid.UUID `json:"role_id"`
	Permissions []string  `json:"permissions"`
	TokenID     string    `json:"token_id"`
	Issuer      string    `json:"issuer"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AccessTokenSigner mints and verifies the self-contained access credential.
// Constructors fail when no signing secret is configured; that failure is
// fatal and must never be retried.
type AccessTokenSigner interface {
	Sign(claims AccessClaims) (string, error)
	ParseAndValidate(token string) (AccessClaims, error)
}

// IdentityClaims is the decoded, fully validated payload of an external
// identity token.
type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	ExpiresAt     time.Time
}

// IdentityVerifier validates a third-party identity token against the
// provider's rotating public keyset.
type IdentityVerifier interface {
	Verify(ctx context.Context, identityToken string) (IdentityClaims, error)
}

// RefreshHasher fingerprints a raw refresh credential for storage and lookup.
// It is an explicit dependency so tests can assert the stored hash matches
// the returned raw credential.
type RefreshHasher interface {
	HashRefreshToken(raw string) string
}
