/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package jobs

import (
	"context"
	"log/slog"

	"github.com/meritmint/ledger-service/internal/config"
	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.JackpotDrawingCron, s.jobs.RunJackpotDrawing); err != nil {
		s.logger.Error("failed to schedule jackpot drawing job", "error", err)
	} else {
		s.logger.Info("scheduled jackpot drawing job", "schedule", s.config.JackpotDrawingCron)
	}

	if _, err := s.cron.AddFunc(s.config.TransferExpiryCron, s.jobs.RunTransferExpiry); err != nil {
		s.logger.Error("failed to schedule transfer expiry job", "error", err)
	} else {
		s.logger.Info("scheduled transfer expiry job", "schedule", s.config.TransferExpiryCron)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
