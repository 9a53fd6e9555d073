package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/metrics"
)

const (
	loyaltyListDefaultLimit = 50
	loyaltyListMaxLimit     = 200
)

// RecordLoyaltyTransaction appends one ledger entry for the customer and
// mirrors the resulting balances onto the customer aggregate. Delta
// normalization and floor-at-zero clamping happen inside the ledger's
// exclusive customer lock, so concurrent writers always chain off the row
// that actually landed before theirs.
func (s *Service) RecordLoyaltyTransaction(ctx context.Context, customerID uuid.UUID, req RecordLoyaltyRequest) (domain.LoyaltyTransaction, error) {
	event := domain.LoyaltyEvent{
		Type:           domain.LoyaltyTransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		PointsDelta:    req.PointsDelta,
		SpentDelta:     req.SpentDelta,
		PurchasesDelta: req.PurchasesDelta,
		Reason:         strings.TrimSpace(req.Reason),
		Meta:           req.Meta,
	}
	// Reject unknown types before taking the customer lock.
	if _, err := domain.NormalizePointsDelta(event.Type, event.PointsDelta); err != nil {
		return domain.LoyaltyTransaction{}, err
	}

	tx, err := s.ledger.Append(ctx, customerID, func(customer domain.Customer, latest *domain.LoyaltyTransaction) (domain.LoyaltyTransaction, error) {
		start := domain.StartingBalances(customer, latest)
		return domain.BuildLoyaltyTransaction(customer.CustomerID, start, event, s.nowFn())
	})
	if err != nil {
		return domain.LoyaltyTransaction{}, err
	}

	metrics.RecordLoyaltyTransaction(string(tx.Type))
	s.enqueueLoyaltyRecorded(ctx, tx)
	slog.Default().InfoContext(ctx, "loyalty transaction recorded",
		"module", "loyalty",
		"layer", "application",
		"operation", "record_transaction",
		"outcome", "success",
		"customer_id", tx.CustomerID,
		"type", string(tx.Type),
		"points_delta", tx.PointsDelta,
		"points_balance", tx.PointsBalance,
	)
	return tx, nil
}

// ListLoyaltyTransactions returns the customer's ledger page ordered from
// newest to oldest entry.
func (s *Service) ListLoyaltyTransactions(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.LoyaltyTransaction, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = loyaltyListDefaultLimit
	}
	if limit > loyaltyListMaxLimit {
		limit = loyaltyListMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListByCustomer(ctx, customerID, limit, offset)
}

// GetCustomer returns the customer aggregate with its mirrored balances.
func (s *Service) GetCustomer(ctx context.Context, customerID uuid.UUID) (domain.Customer, error) {
	return s.customers.GetByID(ctx, customerID)
}
