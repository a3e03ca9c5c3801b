package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdbook/internal/config"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

type fakeBatch struct {
	pageSize int
	force    bool
	calls    int
}

func (f *fakeBatch) RunAll(_ context.Context, pageSize int, force bool) models.BatchResult {
	f.calls++
	f.pageSize, f.force = pageSize, force
	return models.BatchResult{ProcessedCount: 2, UpdatedCount: 2}
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) SweepExpired() int {
	f.calls++
	return 1
}

type fakeReports struct {
	at  time.Time
	err error
}

func (f *fakeReports) GenerateWeeklyReport(_ context.Context, now time.Time) (string, error) {
	f.at = now
	return "Breeding report", f.err
}

type fakeSender struct {
	sent []models.OutboundMessageRequest
}

func (f *fakeSender) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = append(f.sent, req)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		WhatsApp:  config.WhatsAppConfig{ReportTo: "224620000000"},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * 5"},
		Breeding:  config.BreedingConfig{BatchCron: "30 2 * * *", BatchPageSize: 50},
	}
}

func TestSchedulerJobs(t *testing.T) {
	now := time.Date(2024, 1, 19, 20, 0, 0, 0, time.UTC)

	t.Run("batch sweep uses the configured page size", func(t *testing.T) {
		batch := &fakeBatch{}
		s := NewScheduler(testConfig(), time.UTC, batch, &fakeSweeper{}, &fakeReports{}, nil, nil)

		s.runBatchSweep()
		assert.Equal(t, 1, batch.calls)
		assert.Equal(t, 50, batch.pageSize)
		assert.False(t, batch.force)
	})

	t.Run("cache sweep", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		s := NewScheduler(testConfig(), time.UTC, &fakeBatch{}, sweeper, &fakeReports{}, nil, nil)

		s.sweepCache()
		assert.Equal(t, 1, sweeper.calls)
	})

	t.Run("weekly report is sent to the configured recipient", func(t *testing.T) {
		reports := &fakeReports{}
		sender := &fakeSender{}
		s := NewScheduler(testConfig(), time.UTC, &fakeBatch{}, &fakeSweeper{}, reports, sender, nil)
		s.now = func() time.Time { return now }

		s.sendWeeklyReport()
		assert.Equal(t, now, reports.at)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, models.OutboundMessageRequest{To: "224620000000", Message: "Breeding report"}, sender.sent[0])
	})

	t.Run("no recipient", func(t *testing.T) {
		cfg := testConfig()
		cfg.WhatsApp.ReportTo = ""
		sender := &fakeSender{}
		s := NewScheduler(cfg, time.UTC, &fakeBatch{}, &fakeSweeper{}, &fakeReports{}, sender, nil)

		s.sendWeeklyReport()
		assert.Empty(t, sender.sent)
	})

	t.Run("report failure is not sent", func(t *testing.T) {
		sender := &fakeSender{}
		s := NewScheduler(testConfig(), time.UTC, &fakeBatch{}, &fakeSweeper{}, &fakeReports{err: errors.New("boom")}, sender, nil)

		s.sendWeeklyReport()
		assert.Empty(t, sender.sent)
	})
}

func TestSchedulerStart(t *testing.T) {
	t.Run("registers every job", func(t *testing.T) {
		s := NewScheduler(testConfig(), time.UTC, &fakeBatch{}, &fakeSweeper{}, &fakeReports{}, nil, nil)
		require.NoError(t, s.Start())
		defer s.Stop()

		assert.Len(t, s.cron.Entries(), 3)
	})

	t.Run("invalid spec", func(t *testing.T) {
		cfg := testConfig()
		cfg.Breeding.BatchCron = "every night"
		s := NewScheduler(cfg, time.UTC, &fakeBatch{}, &fakeSweeper{}, &fakeReports{}, nil, nil)

		err := s.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "breeding batch sweep")
	})
}
