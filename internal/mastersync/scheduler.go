package mastersync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fekuna/ronary-inventory-service/pkg/logger"
)

// Scheduler runs Sync on a fixed interval.
type Scheduler struct {
	uc       UseCase
	interval time.Duration
	logger   logger.ZapLogger
}

func NewScheduler(uc UseCase, interval time.Duration, log logger.ZapLogger) *Scheduler {
	return &Scheduler{
		uc:       uc,
		interval: interval,
		logger:   log,
	}
}

// Start blocks until ctx is cancelled. A non-positive interval returns at
// once.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("master sync scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("master sync scheduler stopped")
			return
		case <-ticker.C:
			st := s.uc.Sync(ctx)
			if !st.OK {
				s.logger.Warn("scheduled master sync failed",
					zap.String("run_id", st.RunID),
					zap.String("phase", string(st.FailedPhase)),
					zap.String("message", st.Message))
			}
		}
	}
}
