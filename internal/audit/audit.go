package audit

import (
	"context"
	"time"

	"paycom/internal/models"
)

// Actions recorded for transaction mutations.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionCancel = "cancel"
)

// Event describes one persisted transaction mutation.
type Event struct {
	Action       string
	Before       *models.Transaction
	After        models.Transaction
	RowsAffected int64
	RequestID    string
	At           time.Time
}

// Sink receives audit events. Implementations must not fail the caller:
// auditing is a side channel and errors are logged, not returned.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, e)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

type requestIDKey struct{}

// WithRequestID attaches the gateway request id to ctx for audit correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
