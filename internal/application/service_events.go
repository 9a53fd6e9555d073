package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stockwise/backend-core/internal/domain"
	"github.com/stockwise/backend-core/internal/ports"
)

const (
	EventSessionsRevoked   = "auth.sessions.revoked"
	EventLoyaltyTxRecorded = "loyalty.transaction.recorded"
)

// enqueue writes an event to the transactional outbox. A failed enqueue is
// logged and the primary operation still succeeds; the outbox worker owns
// delivery and retries.
func (s *Service) enqueue(ctx context.Context, eventType, partitionKey string, payload any) {
	if s.outbox == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to encode outbox payload",
			"module", "events",
			"layer", "application",
			"operation", "enqueue",
			"outcome", "error",
			"event_type", eventType,
			"error", err,
		)
		return
	}
	event := ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      body,
		OccurredAt:   s.nowFn(),
	}
	if err := s.outbox.Enqueue(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "failed to enqueue outbox event",
			"module", "events",
			"layer", "application",
			"operation", "enqueue",
			"outcome", "warning",
			"event_type", eventType,
			"error", err,
		)
	}
}

func (s *Service) enqueueSessionsRevoked(ctx context.Context, userID uuid.UUID, count int64, allDevices bool, revokedAt time.Time) {
	s.enqueue(ctx, EventSessionsRevoked, userID.String(), map[string]any{
		"user_id":     userID.String(),
		"count":       count,
		"all_devices": allDevices,
		"revoked_at":  revokedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueLoyaltyRecorded(ctx context.Context, tx domain.LoyaltyTransaction) {
	s.enqueue(ctx, EventLoyaltyTxRecorded, tx.CustomerID.String(), map[string]any{
		"customer_id":       tx.CustomerID.String(),
		"type":              string(tx.Type),
		"points_delta":      tx.PointsDelta,
		"points_balance":    tx.PointsBalance,
		"spent_delta":       tx.SpentDelta,
		"spent_balance":     tx.SpentBalance,
		"purchases_delta":   tx.PurchasesDelta,
		"purchases_balance": tx.PurchasesBalance,
		"recorded_at":       tx.CreatedAt.Format(time.RFC3339),
	})
}
