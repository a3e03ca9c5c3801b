package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/config"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

const (
	cacheSweepSchedule = "@hourly"
	batchTimeout       = 30 * time.Minute
	reportTimeout      = 2 * time.Minute
)

// BatchRunner refreshes the stored derived fields of the whole herd.
type BatchRunner interface {
	RunAll(ctx context.Context, pageSize int, force bool) models.BatchResult
}

// CacheSweeper evicts expired real-time calculation entries.
type CacheSweeper interface {
	SweepExpired() int
}

// ReportGenerator builds the weekly breeding report text.
type ReportGenerator interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// Sender delivers the weekly report.
type Sender interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	batch   BatchRunner
	sweeper CacheSweeper
	reports ReportGenerator
	sender  Sender
	cfg     config.Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler running in loc. sender may be nil, in which
// case the weekly report is only exported and stored.
func NewScheduler(cfg config.Config, loc *time.Location, batch BatchRunner, sweeper CacheSweeper, reports ReportGenerator, sender Sender, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		batch:   batch,
		sweeper: sweeper,
		reports: reports,
		sender:  sender,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"breeding batch sweep", s.cfg.Breeding.BatchCron, s.runBatchSweep},
		{"calculation cache sweep", cacheSweepSchedule, s.sweepCache},
		{"weekly breeding report", s.cfg.Reporting.CronSchedule, s.sendWeeklyReport},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runBatchSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	result := s.batch.RunAll(ctx, s.cfg.Breeding.BatchPageSize, false)
	if len(result.Errors) > 0 {
		s.logger.Warn("breeding batch sweep finished with errors",
			zap.Int("processed", result.ProcessedCount),
			zap.Int("failed", len(result.Errors)))
		return
	}
	s.logger.Info("breeding batch sweep finished",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount))
}

func (s *Scheduler) sweepCache() {
	if evicted := s.sweeper.SweepExpired(); evicted > 0 {
		s.logger.Debug("calculation cache swept", zap.Int("evicted", evicted))
	}
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly breeding report")
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	report, err := s.reports.GenerateWeeklyReport(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	if s.sender == nil || s.cfg.WhatsApp.ReportTo == "" {
		s.logger.Info("weekly report generated, no recipient configured")
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.ReportTo,
		Message: report,
	}
	if err := s.sender.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
	} else {
		s.logger.Info("weekly report sent successfully")
	}
}
