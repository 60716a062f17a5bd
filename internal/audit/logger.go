package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes audit events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Record(_ context.Context, e Event) {
	fields := []zap.Field{
		zap.String("action", e.Action),
		zap.Uint("id", e.After.ID),
		zap.String("paycom_transaction_id", e.After.PaycomTransactionID),
		zap.String("order_id", e.After.OrderID),
		zap.Int("state", int(e.After.State)),
		zap.Int64("rows_affected", e.RowsAffected),
		zap.String("request_id", e.RequestID),
		zap.Any("after", e.After),
	}
	if e.Before != nil {
		fields = append(fields, zap.Int("previous_state", int(e.Before.State)), zap.Any("before", e.Before))
	}
	if e.After.Reason != nil {
		fields = append(fields, zap.Int("reason", int(*e.After.Reason)))
	}
	s.logger.Info("transaction "+e.Action, fields...)
}
