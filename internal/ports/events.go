package ports

import "context"

// EventPublisher delivers a drained outbox record to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
