package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
)

// UserDirectory is read access to provisioned users. Implementations must
// resolve email case-insensitively and return role, direct grants and tenant
// eagerly so issuance needs no follow-up reads.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	// RecordLogin stamps last_login_at and, when markVerified is set, the
	// email-verified timestamp if it is still empty.
	RecordLogin(ctx context.Context, userID uuid.UUID, loginAt time.Time, markVerified bool) error
}

// TokenCreateParams captures one freshly issued token pair plus its request
// context. Only the refresh credential's hash ever reaches storage.
type TokenCreateParams struct {
	UserID           uuid.UUID
	DeviceName       string
	AccessTokenID    string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	IPAddress        string
	UserAgent        string
}

// TokenRotation is the set of fields a refresh overwrites in place. The row's
// identity (id, user, created_at) is preserved; everything here replaces the
// previous generation.
type TokenRotation struct {
	AccessTokenID    string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	DeviceName       string
	IPAddress        string
	UserAgent        string
	LastUsedAt       time.Time
}

// AuthTokenRepository manages persisted token-pair records.
//
// RotateByRefreshHash is the one mandatory serialization point of the token
// lifecycle: it must hold an exclusive row lock on the matched non-revoked
// record while fn runs and until the rotation is persisted, so two refreshes
// of the same session can never both succeed. A missing or revoked record
// surfaces as domain.ErrNotFound; errors returned by fn abort the
// transaction unchanged.
type AuthTokenRepository interface {
	Create(ctx context.Context, params TokenCreateParams) (domain.AuthToken, error)
	GetByAccessTokenID(ctx context.Context, accessTokenID string) (domain.AuthToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AuthToken, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	RotateByRefreshHash(ctx context.Context, refreshHash string, fn func(current domain.AuthToken) (TokenRotation, error)) (domain.AuthToken, error)
	// RevokeByAccessTokenID sets revoked and forces both expiries to revokedAt
	// on one record. A revoked record is never un-revoked.
	RevokeByAccessTokenID(ctx context.Context, accessTokenID string, revokedAt time.Time) error
	// RevokeAllByUser applies the same field updates to every record owned by
	// the user in one bulk update, returning the number of rows touched.
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) (int64, error)
	TouchLastUsed(ctx context.Context, accessTokenID string, usedAt time.Time) error
}

// CustomerRepository is read access to loyalty aggregates.
type CustomerRepository interface {
	GetByID(ctx context.Context, customerID uuid.UUID) (domain.Customer, error)
}

// LoyaltyLedger appends immutable transactions and keeps the owning customer
// aggregate reconciled.
//
// Append must execute fn inside a transaction that exclusively locks the
// customer row, with latest being the customer's most recent transaction
// (creation time desc, id desc) or nil. The row fn returns is inserted
// verbatim and the customer's balances are updated to its resulting
// balances, plus last_purchase_at when the transaction touches it.
// Transactions for different customers must not block each other.
type LoyaltyLedger interface {
	Append(ctx context.Context, customerID uuid.UUID, fn func(c domain.Customer, latest *domain.LoyaltyTransaction) (domain.LoyaltyTransaction, error)) (domain.LoyaltyTransaction, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.LoyaltyTransaction, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	LastError    *string
	CreatedAt    time.Time
	PublishedAt  *time.Time
	LastErrorAt  *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
//
// ListUnpublished must exclude records whose retry count has reached
// maxRetries; exhausted records stay in the table for manual inspection but
// must never occupy a batch slot, or they would starve newer events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ListUnpublished(ctx context.Context, limit, maxRetries int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
