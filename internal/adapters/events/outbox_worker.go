package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/stockwise/backend-core/internal/metrics"
	"github.com/stockwise/backend-core/internal/ports"
)

// OutboxWorker pulls unpublished outbox records and publishes them to the
// broker. Separating transactional writes from broker delivery means a broker
// outage never fails the primary operation.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	maxRetries int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize, maxRetries int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}
}

// Run executes the periodic publish loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	// Retry-exhausted records are filtered out of the selection so they
	// never occupy batch slots; they stay in the table for manual
	// inspection.
	records, err := w.outbox.ListUnpublished(ctx, w.batchSize, w.maxRetries)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, rec := range records {
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload); err != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish_event",
				"outcome", "failure",
				"outbox_id", rec.OutboxID,
				"event_type", rec.EventType,
				"retry_count", rec.RetryCount+1,
				"error", err,
			)
			_ = w.outbox.MarkFailed(ctx, rec.OutboxID, err.Error(), now)
			continue
		}
		metrics.RecordOutboxPublished()
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, now); err != nil {
			w.logger.ErrorContext(ctx, "outbox mark published failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "mark_published",
				"outcome", "failure",
				"outbox_id", rec.OutboxID,
				"error", err,
			)
		}
	}
	return nil
}
