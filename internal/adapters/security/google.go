package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

const (
	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	defaultKeysetTTL     = 6 * time.Hour
	keysetFetchTimeout   = 8 * time.Second
)

// GoogleVerifierConfig configures validation of Google-issued ID tokens.
type GoogleVerifierConfig struct {
	ClientID  string
	Issuers   []string
	JWKSURL   string
	KeysetTTL time.Duration
}

// GoogleVerifier validates Google ID tokens against the provider's rotating
// RSA keyset. The keyset document is cached through a KeysetStore; an unknown
// key identifier triggers exactly one forced refetch before the token is
// rejected.
type GoogleVerifier struct {
	cfg    GoogleVerifierConfig
	keyset ports.KeysetStore
	client *http.Client
}

func NewGoogleVerifier(cfg GoogleVerifierConfig, keyset ports.KeysetStore) *GoogleVerifier {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultGoogleJWKSURL
	}
	if cfg.KeysetTTL <= 0 {
		cfg.KeysetTTL = defaultKeysetTTL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = []string{"https://accounts.google.com", "accounts.google.com"}
	}
	return &GoogleVerifier{
		cfg:    cfg,
		keyset: keyset,
		client: &http.Client{Timeout: keysetFetchTimeout},
	}
}

type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (v *GoogleVerifier) Verify(ctx context.Context, identityToken string) (ports.IdentityClaims, error) {
	kid, err := keyIdentifier(identityToken)
	if err != nil {
		return ports.IdentityClaims{}, err
	}

	publicKey, err := v.keyForKid(ctx, kid)
	if err != nil {
		return ports.IdentityClaims{}, err
	}

	// No leeway: an expired token is expired, however recently.
	var claims googleIDClaims
	token, err := jwt.ParseWithClaims(identityToken, &claims,
		func(t *jwt.Token) (any, error) { return publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.IdentityClaims{}, fmt.Errorf("%w: token is expired", domain.ErrClaimValidation)
		}
		return ports.IdentityClaims{}, fmt.Errorf("%w: %v", domain.ErrIdentityVerification, err)
	}
	if !token.Valid {
		return ports.IdentityClaims{}, domain.ErrIdentityVerification
	}
	if err := v.validateClaims(claims); err != nil {
		return ports.IdentityClaims{}, err
	}

	out := ports.IdentityClaims{
		Subject:       claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (v *GoogleVerifier) validateClaims(claims googleIDClaims) error {
	issuerOK := false
	for _, iss := range v.cfg.Issuers {
		if claims.Issuer == iss {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return fmt.Errorf("%w: unexpected issuer %q", domain.ErrClaimValidation, claims.Issuer)
	}

	audienceOK := false
	for _, aud := range claims.Audience {
		if aud == v.cfg.ClientID {
			audienceOK = true
			break
		}
	}
	if !audienceOK {
		return fmt.Errorf("%w: audience mismatch", domain.ErrClaimValidation)
	}

	if strings.TrimSpace(claims.Email) == "" {
		return fmt.Errorf("%w: email claim missing", domain.ErrClaimValidation)
	}
	if !claims.EmailVerified {
		return fmt.Errorf("%w: email not verified", domain.ErrClaimValidation)
	}
	return nil
}

// keyIdentifier decodes only the header segment. Signature verification
// happens later with the resolved key; this just routes the lookup.
func keyIdentifier(identityToken string) (string, error) {
	parts := strings.Split(identityToken, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: not a compact JWT", domain.ErrMalformedIdentityToken)
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable header", domain.ErrMalformedIdentityToken)
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", fmt.Errorf("%w: undecodable header", domain.ErrMalformedIdentityToken)
	}
	if header.Kid == "" {
		return "", domain.ErrMalformedIdentityToken
	}
	return header.Kid, nil
}

// keyForKid resolves the signing key from the cached keyset, refetching the
// document at most once when the identifier is unknown. Key rotation at the
// provider looks exactly like a stale cache, so the single retry covers it.
func (v *GoogleVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := v.currentKeyset(ctx, false)
	if err != nil {
		return nil, err
	}
	if key, ok := keys[kid]; ok {
		return key, nil
	}

	keys, err = v.currentKeyset(ctx, true)
	if err != nil {
		return nil, err
	}
	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: no key for kid %q", domain.ErrUnresolvableKey, kid)
}

func (v *GoogleVerifier) currentKeyset(ctx context.Context, forceRefresh bool) (map[string]*rsa.PublicKey, error) {
	if forceRefresh {
		if err := v.keyset.Delete(ctx); err != nil {
			slog.Default().WarnContext(ctx, "failed to drop cached keyset",
				"module", "identity",
				"layer", "adapter",
				"operation", "keyset_refresh",
				"outcome", "warning",
				"error", err,
			)
		}
	} else if raw, err := v.keyset.Get(ctx); err == nil && raw != nil {
		if keys, err := decodeKeyset(raw); err == nil {
			return keys, nil
		}
	}

	raw, err := v.fetchKeyset(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: keyset fetch failed: %v", domain.ErrUnresolvableKey, err)
	}
	keys, err := decodeKeyset(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnresolvableKey, err)
	}
	if err := v.keyset.Put(ctx, raw, v.cfg.KeysetTTL); err != nil {
		slog.Default().WarnContext(ctx, "failed to cache keyset",
			"module", "identity",
			"layer", "adapter",
			"operation", "keyset_refresh",
			"outcome", "warning",
			"error", err,
		)
	}
	return keys, nil
}

func (v *GoogleVerifier) fetchKeyset(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from jwks endpoint", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func decodeKeyset(raw []byte) (map[string]*rsa.PublicKey, error) {
	var doc jwksDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode keyset document: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("keyset document contains no usable keys")
	}
	return keys, nil
}
