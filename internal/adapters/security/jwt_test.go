package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

func testClaims(now time.Time) ports.AccessClaims {
	return ports.AccessClaims{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		RoleID:      uuid.New(),
		Permissions: []string{"inventory.read", "loyalty.record"},
		TokenID:     uuid.NewString(),
		Issuer:      "stockwise-test",
		IssuedAt:    now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}

func TestNewJWTSignerRequiresSecret(t *testing.T) {
	t.Parallel()

	for _, secret := range []string{"", "   "} {
		if _, err := NewJWTSigner(secret, "stockwise-test"); !errors.Is(err, domain.ErrSigningSecretMissing) {
			t.Fatalf("secret %q: got %v, want ErrSigningSecretMissing", secret, err)
		}
	}
}

func TestJWTSignerRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewJWTSigner("test-secret", "stockwise-test")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	claims := testClaims(time.Now().UTC().Truncate(time.Second))

	raw, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got.UserID != claims.UserID || got.TenantID != claims.TenantID || got.RoleID != claims.RoleID {
		t.Fatalf("identity claims changed in transit: %+v", got)
	}
	if got.TokenID != claims.TokenID || got.Issuer != claims.Issuer {
		t.Fatalf("token id/issuer = %q/%q, want %q/%q", got.TokenID, got.Issuer, claims.TokenID, claims.Issuer)
	}
	if len(got.Permissions) != 2 || got.Permissions[0] != "inventory.read" || got.Permissions[1] != "loyalty.record" {
		t.Fatalf("permissions = %v", got.Permissions)
	}
	if !got.ExpiresAt.Equal(claims.ExpiresAt) || !got.IssuedAt.Equal(claims.IssuedAt) {
		t.Fatalf("timestamps = %v/%v, want %v/%v", got.IssuedAt, got.ExpiresAt, claims.IssuedAt, claims.ExpiresAt)
	}
}

func TestJWTSignerStampsConfiguredIssuer(t *testing.T) {
	t.Parallel()

	signer, err := NewJWTSigner("test-secret", "stockwise-test")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	claims := testClaims(time.Now().UTC().Truncate(time.Second))
	claims.Issuer = "spoofed-issuer"

	raw, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Issuer != "stockwise-test" {
		t.Fatalf("issuer = %q, want the signer's configured issuer", got.Issuer)
	}
}

func TestJWTSignerRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	signer, err := NewJWTSigner("test-secret", "stockwise-test")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	now := time.Now().UTC()
	raw, err := signer.Sign(testClaims(now))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := raw[:len(raw)-4] + "AAAA"
	if _, err := signer.ParseAndValidate(tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("tampered signature: got %v, want ErrUnauthorized", err)
	}

	other, _ := NewJWTSigner("another-secret", "stockwise-test")
	if _, err := other.ParseAndValidate(raw); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong secret: got %v, want ErrUnauthorized", err)
	}

	foreign, _ := NewJWTSigner("test-secret", "some-other-service")
	foreignToken, _ := foreign.Sign(testClaims(now))
	if _, err := signer.ParseAndValidate(foreignToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong issuer: got %v, want ErrUnauthorized", err)
	}

	expired := testClaims(now.Add(-2 * time.Hour))
	expiredToken, _ := signer.Sign(expired)
	if _, err := signer.ParseAndValidate(expiredToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expired: got %v, want ErrUnauthorized", err)
	}

	if _, err := signer.ParseAndValidate("not.a.jwt"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("garbage: got %v, want ErrUnauthorized", err)
	}
}

func TestSHA256RefreshHasher(t *testing.T) {
	t.Parallel()

	h := SHA256RefreshHasher{}
	sum := h.HashRefreshToken("credential-a")
	if len(sum) != 64 || strings.ToLower(sum) != sum {
		t.Fatalf("hash %q is not lowercase hex sha-256", sum)
	}
	if sum != h.HashRefreshToken("credential-a") {
		t.Fatal("hashing is not deterministic")
	}
	if sum == h.HashRefreshToken("credential-b") {
		t.Fatal("distinct credentials collided")
	}
}
