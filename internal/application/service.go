package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

// refreshTokenBytes yields an 80-character hex credential, comfortably above
// the 64-character floor and in a different character space than the signed
// access credential.
const refreshTokenBytes = 40

type Config struct {
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SignInRateLimitIPThreshold    int
	SignInRateLimitEmailThreshold int
	SignInRateLimitWindow         time.Duration
}

type Service struct {
	cfg       Config
	users     ports.UserDirectory
	tokens    ports.AuthTokenRepository
	customers ports.CustomerRepository
	ledger    ports.LoyaltyLedger
	outbox    ports.OutboxRepository
	limiter   ports.RateLimitStore
	verifier  ports.IdentityVerifier
	signer    ports.AccessTokenSigner
	hasher    ports.RefreshHasher
	nowFn     func() time.Time
}

type Dependencies struct {
	Config    Config
	Users     ports.UserDirectory
	Tokens    ports.AuthTokenRepository
	Customers ports.CustomerRepository
	Ledger    ports.LoyaltyLedger
	Outbox    ports.OutboxRepository
	Limiter   ports.RateLimitStore
	Verifier  ports.IdentityVerifier
	Signer    ports.AccessTokenSigner
	Hasher    ports.RefreshHasher
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:       deps.Config,
		users:     deps.Users,
		tokens:    deps.Tokens,
		customers: deps.Customers,
		ledger:    deps.Ledger,
		outbox:    deps.Outbox,
		limiter:   deps.Limiter,
		verifier:  deps.Verifier,
		signer:    deps.Signer,
		hasher:    deps.Hasher,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// normalizeEmail canonicalizes and validates email format before lookup.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// randomHex returns a cryptographically random hex string of 2*bytesLen chars.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// newTokenID mints the opaque access-token identifier. UUIDv7 keeps the
// identifiers time-sortable while staying globally unique.
func newTokenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.limiter == nil || threshold <= 0 || window <= 0 {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}
	count, err := s.limiter.Increment(ctx, key, window)
	if err != nil {
		slog.Default().WarnContext(ctx, "rate-limit state unavailable",
			"module", "application",
			"layer", "application",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if count > int64(threshold) {
		return domain.ErrRateLimited
	}
	return nil
}
