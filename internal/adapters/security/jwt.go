package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

// JWTSigner mints and verifies HS256 access credentials. The secret is
// mandatory: construction fails without one and the process must not start.
type JWTSigner struct {
	secret []byte
	issuer string
}

func NewJWTSigner(secret, issuer string) (*JWTSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, domain.ErrSigningSecretMissing
	}
	return &JWTSigner{secret: []byte(secret), issuer: issuer}, nil
}

type accessTokenClaims struct {
	TenantID    string   `json:"tenant_id"`
	RoleID      string   `json:"role_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Sign always stamps the signer's configured issuer; a caller-supplied
// issuer in the claims is ignored.
func (s *JWTSigner) Sign(claims ports.AccessClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		TenantID:    claims.TenantID.String(),
		RoleID:      claims.RoleID.String(),
		Permissions: claims.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.UserID.String(),
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *JWTSigner) ParseAndValidate(raw string) (ports.AccessClaims, error) {
	var parsed accessTokenClaims
	token, err := jwt.ParseWithClaims(raw, &parsed,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: invalid subject", domain.ErrUnauthorized)
	}
	tenantID, err := uuid.Parse(parsed.TenantID)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: invalid tenant", domain.ErrUnauthorized)
	}
	roleID, err := uuid.Parse(parsed.RoleID)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: invalid role", domain.ErrUnauthorized)
	}
	claims := ports.AccessClaims{
		UserID:      userID,
		TenantID:    tenantID,
		RoleID:      roleID,
		Permissions: parsed.Permissions,
		TokenID:     parsed.ID,
		Issuer:      parsed.Issuer,
		ExpiresAt:   parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

// SHA256RefreshHasher fingerprints raw refresh credentials for storage.
// Hashing is one-way on purpose: a leaked database row cannot be replayed as
// a credential.
type SHA256RefreshHasher struct{}

func (SHA256RefreshHasher) HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
