package recompute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecompute(t *testing.T) {
	svc := NewService(nil)
	ref := date(2024, 1, 15)

	t.Run("empty history yields the initial state", func(t *testing.T) {
		result, err := svc.Recompute(1, nil, ref)
		require.NoError(t, err)

		assert.Equal(t, models.NotBreeding{}, result.Status)
		assert.Zero(t, result.Summary.TotalInseminationCount)
		assert.Nil(t, result.Summary.PregnancySuccessRate)
		assert.Nil(t, result.Summary.AverageCalvingInterval)
	})

	t.Run("two calvings", func(t *testing.T) {
		result, err := svc.Recompute(1, []models.BreedingEvent{
			models.Calve{Timestamp: date(2023, 1, 1)},
			models.Calve{Timestamp: date(2024, 1, 1)},
		}, ref)
		require.NoError(t, err)

		status := result.Status.(models.PostCalving)
		assert.Equal(t, 2, status.Parity)
		assert.Equal(t, 14, status.DaysAfterCalving)
		require.NotNil(t, result.Summary.AverageCalvingInterval)
		assert.Equal(t, 365, *result.Summary.AverageCalvingInterval)
	})

	t.Run("insemination after calving", func(t *testing.T) {
		result, err := svc.Recompute(1, []models.BreedingEvent{
			models.Inseminate{Timestamp: date(2024, 1, 10)},
			models.Calve{Timestamp: date(2023, 12, 1)},
		}, ref)
		require.NoError(t, err)

		status := result.Status.(models.Inseminated)
		assert.Equal(t, 5, status.DaysAfterInsemination)
		assert.Equal(t, 1, status.InseminationCount)
		require.NotNil(t, status.DaysOpen)
		assert.Equal(t, 40, *status.DaysOpen)
	})

	t.Run("confirmed pregnancy", func(t *testing.T) {
		check := date(2023, 12, 1)
		result, err := svc.Recompute(1, []models.BreedingEvent{
			models.Inseminate{Timestamp: date(2023, 11, 1)},
			models.ConfirmPregnancy{Timestamp: date(2023, 11, 1), ExpectedCalvingDate: date(2024, 7, 1), ScheduledPregnancyCheckDate: &check},
		}, ref)
		require.NoError(t, err)

		status := result.Status.(models.Pregnant)
		assert.Equal(t, 75, status.PregnancyDays)
		assert.Equal(t, date(2024, 7, 1), status.ExpectedCalvingDate)
		assert.Equal(t, &check, status.ScheduledPregnancyCheckDate)
	})

	t.Run("new cycle after calving keeps the calving date", func(t *testing.T) {
		result, err := svc.Recompute(1, []models.BreedingEvent{
			models.Calve{Timestamp: date(2023, 12, 1)},
			models.StartNewCycle{Timestamp: date(2024, 1, 2)},
		}, ref)
		require.NoError(t, err)

		status := result.Status.(models.NotBreeding)
		assert.Equal(t, 1, status.Parity)
		require.NotNil(t, status.DaysAfterCalving)
		assert.Equal(t, 45, *status.DaysAfterCalving)
	})

	t.Run("future event is rejected", func(t *testing.T) {
		_, err := svc.Recompute(1, []models.BreedingEvent{models.Inseminate{Timestamp: ref.AddDate(0, 0, 1)}}, ref)
		assert.Equal(t, models.KindValidation, models.ErrorKind(err))
	})

	t.Run("cattle id must be positive", func(t *testing.T) {
		_, err := svc.Recompute(0, nil, ref)
		assert.Equal(t, models.KindValidation, models.ErrorKind(err))
	})
}

func TestRecomputeUnrecognizedLatestEvent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(zap.New(core))
	ref := date(2024, 1, 15)

	result, err := svc.Recompute(9, []models.BreedingEvent{
		models.Inseminate{Timestamp: date(2023, 12, 1)},
		models.UnrecognizedEvent{Kind: "abort", Timestamp: date(2023, 12, 20)},
	}, ref)
	require.NoError(t, err)

	assert.Equal(t, models.InitialStatus(), result.Status)
	assert.Equal(t, 1, result.Summary.TotalInseminationCount)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abort", logs.All()[0].ContextMap()["event_type"])
}

func TestRecomputeIsDeterministic(t *testing.T) {
	svc := NewService(nil)
	ref := date(2024, 1, 15)
	events := []models.BreedingEvent{
		models.Calve{Timestamp: date(2023, 1, 1)},
		models.Inseminate{Timestamp: date(2023, 3, 1)},
		models.ConfirmPregnancy{Timestamp: date(2023, 4, 1), ExpectedCalvingDate: date(2023, 12, 5)},
	}

	first, err := svc.Recompute(1, events, ref)
	require.NoError(t, err)
	second, err := svc.Recompute(1, events, ref)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecomputeAgreesWithAggregate(t *testing.T) {
	svc := NewService(nil)
	ref := date(2024, 6, 1)

	events := []models.BreedingEvent{
		models.Inseminate{Timestamp: date(2022, 3, 1)},
		models.ConfirmPregnancy{Timestamp: date(2022, 4, 10), ExpectedCalvingDate: date(2022, 12, 5)},
		models.Calve{Timestamp: date(2022, 12, 3), Memo: "heifer calf"},
		models.StartNewCycle{Timestamp: date(2023, 2, 20)},
		models.Inseminate{Timestamp: date(2023, 3, 1)},
		models.Inseminate{Timestamp: date(2023, 3, 22), Memo: "second service"},
	}

	aggregate := breeding.New(1, 7, date(2022, 1, 1))
	for _, event := range events {
		next, err := aggregate.ApplyEvent(event, ref)
		require.NoError(t, err)
		aggregate = next
	}

	result, err := svc.Recompute(1, events, ref)
	require.NoError(t, err)

	assert.Equal(t, aggregate.Status(), result.Status)
	assert.Equal(t, aggregate.Summary(), result.Summary)
	require.NoError(t, aggregate.IsValid())
}
