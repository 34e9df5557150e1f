// Package events is a small in-process publish/subscribe bus. Subscribers
// observe state changes in order, but a slow subscriber only sees the most
// recent event: an undelivered one is replaced by its successor.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/logger"
)

// Event is the envelope delivered to subscribers.
type Event[T any] struct {
	ID            string
	Type          string
	Source        string
	Timestamp     time.Time
	CorrelationID string
	Data          T
}

// New creates an event with a generated ID and the current timestamp. The
// correlation id is taken from ctx when present.
func New[T any](ctx context.Context, eventType, source string, data T) Event[T] {
	return Event[T]{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          data,
	}
}
