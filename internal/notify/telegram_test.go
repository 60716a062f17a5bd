package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"paycom/internal/audit"
	"paycom/internal/models"
)

type memorySender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *memorySender) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func event(action string, state models.TransactionState, reason *models.CancelReason) audit.Event {
	return audit.Event{
		Action: action,
		After: models.Transaction{
			PaycomTransactionID: "T1",
			OrderID:             "<O1>",
			Amount:              1234500,
			State:               state,
			Reason:              reason,
		},
	}
}

func TestFormatEvent(t *testing.T) {
	_, ok := FormatEvent(event(audit.ActionInsert, models.StateCreated, nil))
	assert.False(t, ok)

	text, ok := FormatEvent(event(audit.ActionUpdate, models.StateCompleted, nil))
	assert.True(t, ok)
	assert.Contains(t, text, "Payment completed")
	assert.Contains(t, text, "Amount: 12,345.00 UZS")
	assert.Contains(t, text, "<code>&lt;O1&gt;</code>")

	reason := models.ReasonCancelledByTimeout
	text, ok = FormatEvent(event(audit.ActionCancel, models.StateCancelled, &reason))
	assert.True(t, ok)
	assert.Contains(t, text, "Payment cancelled")
	assert.Contains(t, text, "Reason: timed out")

	refund := models.ReasonFundReturned
	text, _ = FormatEvent(event(audit.ActionCancel, models.StateCancelledAfterComplete, &refund))
	assert.Contains(t, text, "Payment refunded")
}

func TestReporter(t *testing.T) {
	sender := &memorySender{}
	r := NewReporter(sender, zap.NewNop())

	r.Record(context.Background(), event(audit.ActionInsert, models.StateCreated, nil))
	r.Record(context.Background(), event(audit.ActionUpdate, models.StateCompleted, nil))
	r.Wait()
	assert.Len(t, sender.texts, 1)

	sender.err = errors.New("telegram down")
	r.Record(context.Background(), event(audit.ActionUpdate, models.StateCompleted, nil))
	r.Wait()
	assert.Len(t, sender.texts, 2, "delivery failures are logged, not retried")
}
