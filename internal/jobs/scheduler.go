package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
)

// Purger removes aged completed requests.
type Purger interface {
	PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler runs the periodic janitor job.
type Scheduler struct {
	cron   *cron.Cron
	cfg    config.JanitorConfig
	purger Purger
	logger *zap.Logger
}

// NewScheduler builds the scheduler.
func NewScheduler(cfg config.JanitorConfig, purger Purger, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		cfg:    cfg,
		purger: purger,
		logger: logger,
	}
}

// Start registers and launches the janitor schedule.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("janitor disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := s.purger.PurgeCompleted(ctx, s.cfg.Retention()); err != nil {
			s.logger.Error("janitor purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("janitor scheduled",
		zap.String("schedule", s.cfg.Schedule),
		zap.Int("retention_days", s.cfg.RetentionDays))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
