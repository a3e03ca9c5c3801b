package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/repository/memory"
)

type recordingInvalidator struct {
	cleared []int64
}

func (r *recordingInvalidator) ClearCattle(cattleID int64) {
	r.cleared = append(r.cleared, cattleID)
}

func newTestService(now time.Time) (*Service, *memory.Repository, *recordingInvalidator) {
	repo := memory.NewRepository()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil)
	svc.now = func() time.Time { return now }
	return svc, repo, inv
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	t.Run("creates an empty record", func(t *testing.T) {
		svc, _, _ := newTestService(now)

		aggregate, err := svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: 3})
		require.NoError(t, err)
		assert.Equal(t, 1, aggregate.Version())
		assert.Equal(t, int64(7), aggregate.OwnerID())
		assert.Equal(t, models.PhaseNotBreeding, aggregate.Status().Phase())
	})

	t.Run("second initialization conflicts", func(t *testing.T) {
		svc, _, _ := newTestService(now)

		_, err := svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: 3})
		require.NoError(t, err)
		_, err = svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: 3})
		assert.Equal(t, models.KindConflict, models.ErrorKind(err))
	})

	t.Run("identity is validated", func(t *testing.T) {
		svc, _, _ := newTestService(now)

		_, err := svc.Initialize(ctx, models.InitializeCommand{CattleID: 3})
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "requester_user_id", validationErr.Field)

		_, err = svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: -1})
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "cattle_id", validationErr.Field)
	})
}

func TestRecordEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	t.Run("first event creates the record", func(t *testing.T) {
		svc, repo, inv := newTestService(now)

		aggregate, err := svc.RecordEvent(ctx, models.RecordEventCommand{
			RequesterUserID: 7,
			CattleID:        3,
			Event:           models.Inseminate{Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, aggregate.Version())
		assert.Equal(t, []int64{3}, inv.cleared)

		stored, err := repo.FindByCattleID(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, models.PhaseInseminated, stored.Status().Phase())
	})

	t.Run("illegal transition is rejected and nothing is stored", func(t *testing.T) {
		svc, repo, inv := newTestService(now)
		_, err := svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: 3})
		require.NoError(t, err)

		_, err = svc.RecordEvent(ctx, models.RecordEventCommand{
			RequesterUserID: 7,
			CattleID:        3,
			Event:           models.Calve{Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		})
		assert.EqualError(t, err, "event: cannot apply Calve while NotBreeding")
		assert.Empty(t, inv.cleared)

		stored, err := repo.FindByCattleID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Version())
	})

	t.Run("future event is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(now)

		_, err := svc.RecordEvent(ctx, models.RecordEventCommand{
			RequesterUserID: 7,
			CattleID:        3,
			Event:           models.Inseminate{Timestamp: now.Add(time.Minute)},
		})
		assert.EqualError(t, err, "timestamp: Event timestamp cannot be in the future")
	})

	t.Run("event validation", func(t *testing.T) {
		svc, _, _ := newTestService(now)
		confirmedAt := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

		tests := []struct {
			name  string
			event models.BreedingEvent
			field string
		}{
			{"missing event", nil, "event"},
			{"unknown type", models.UnrecognizedEvent{Kind: "abort", Timestamp: confirmedAt}, "event"},
			{"missing timestamp", models.Inseminate{}, "timestamp"},
			{"missing expected calving date", models.ConfirmPregnancy{Timestamp: confirmedAt}, "expected_calving_date"},
			{"expected calving before confirmation", models.ConfirmPregnancy{Timestamp: confirmedAt, ExpectedCalvingDate: confirmedAt.AddDate(0, 0, -1)}, "expected_calving_date"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.RecordEvent(ctx, models.RecordEventCommand{RequesterUserID: 7, CattleID: 3, Event: tt.event})
				var validationErr *models.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.field, validationErr.Field)
			})
		}
	})
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC))

	aggregate, err := svc.GetStatus(ctx, models.StatusQuery{RequesterUserID: 7, CattleID: 3})
	require.NoError(t, err)
	assert.Nil(t, aggregate)

	_, err = svc.Initialize(ctx, models.InitializeCommand{RequesterUserID: 7, CattleID: 3})
	require.NoError(t, err)

	aggregate, err = svc.GetStatus(ctx, models.StatusQuery{RequesterUserID: 7, CattleID: 3})
	require.NoError(t, err)
	require.NotNil(t, aggregate)
	assert.Equal(t, int64(3), aggregate.CattleID())
}

func TestHerdQueries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)

	record := func(cattleID int64, event models.BreedingEvent) {
		t.Helper()
		_, err := svc.RecordEvent(ctx, models.RecordEventCommand{RequesterUserID: 7, CattleID: cattleID, Event: event})
		require.NoError(t, err)
	}
	record(1, models.Inseminate{Timestamp: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)})
	record(2, models.Inseminate{Timestamp: time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)})
	record(2, models.ConfirmPregnancy{Timestamp: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), ExpectedCalvingDate: time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)})

	t.Run("attention", func(t *testing.T) {
		ids, err := svc.GetCattleNeedingAttention(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)

		_, err = svc.GetCattleNeedingAttention(ctx, 0)
		assert.Equal(t, models.KindValidation, models.ErrorKind(err))
	})

	t.Run("statistics", func(t *testing.T) {
		stats, err := svc.GetHerdStatistics(ctx, 7, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalInseminations)
		assert.Equal(t, 1, stats.TotalPregnancies)
		require.NotNil(t, stats.AveragePregnancyRate)
		assert.InDelta(t, 50.0, *stats.AveragePregnancyRate, 1e-9)
	})

	t.Run("statistics window must be ordered", func(t *testing.T) {
		_, err := svc.GetHerdStatistics(ctx, 7, now, now.AddDate(0, 0, -1))
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "end", validationErr.Field)
	})
}
