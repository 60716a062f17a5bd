package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paycom/internal/notify"
	"paycom/internal/pkg/utils"
)

// StaleCounter counts created transactions past the timeout.
type StaleCounter interface {
	CountStale(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs read-only maintenance reports. Transactions are never
// modified here; expiry stays lazy.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	stale  StaleCounter
	sender notify.Sender
	clock  utils.Clock
	logger *zap.Logger
}

// New creates a new cron scheduler. spec uses the six-field format with
// seconds; an empty spec disables the stale report. sender may be nil.
func New(spec string, stale StaleCounter, sender notify.Sender, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		stale:  stale,
		sender: sender,
		clock:  utils.SystemClock,
		logger: logger.Named("cron"),
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("Stale transaction report disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.staleReport); err != nil {
		return fmt.Errorf("invalid CRON_STALE_REPORT %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Cron scheduler started", zap.String("stale_report", s.spec))
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) staleReport() {
	defer s.recoverFromPanic("stale_report")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.stale.CountStale(ctx, s.clock())
	if err != nil {
		s.logger.Error("Failed to count stale transactions", zap.Error(err))
		return
	}
	if count == 0 {
		s.logger.Debug("No stale transactions")
		return
	}

	s.logger.Warn("Created transactions past the timeout", zap.Int64("count", count))
	if s.sender == nil {
		return
	}
	text := fmt.Sprintf("⏳ <b>%d</b> created transaction(s) are past the 12h timeout and will be cancelled on next access.", count)
	if err := s.sender.Send(ctx, text); err != nil {
		s.logger.Warn("Failed to send stale report", zap.Error(err))
	}
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
