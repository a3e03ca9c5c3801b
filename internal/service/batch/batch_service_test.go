package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/repository/memory"
	"github.com/mamadbah2/herdbook/internal/service/recompute"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindByCattleID(ctx context.Context, cattleID int64) (*breeding.Aggregate, error) {
	args := m.Called(ctx, cattleID)
	aggregate, _ := args.Get(0).(*breeding.Aggregate)
	return aggregate, args.Error(1)
}

func (m *mockRepository) Save(ctx context.Context, aggregate breeding.Aggregate) (breeding.Aggregate, error) {
	args := m.Called(ctx, aggregate)
	return args.Get(0).(breeding.Aggregate), args.Error(1)
}

func (m *mockRepository) GetBreedingHistory(ctx context.Context, cattleID int64, start, end *time.Time) ([]models.BreedingEvent, error) {
	args := m.Called(ctx, cattleID, start, end)
	events, _ := args.Get(0).([]models.BreedingEvent)
	return events, args.Error(1)
}

func (m *mockRepository) FindCattleNeedingAttention(ctx context.Context, ownerID int64, ref time.Time) ([]int64, error) {
	args := m.Called(ctx, ownerID, ref)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *mockRepository) UpdateBreedingStatusDays(ctx context.Context, cattleID int64, historyLen int, status models.BreedingStatus, summary models.BreedingSummary, ref time.Time) error {
	args := m.Called(ctx, cattleID, historyLen, status, summary, ref)
	return args.Error(0)
}

func (m *mockRepository) GetBreedingStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error) {
	args := m.Called(ctx, ownerID, start, end)
	return args.Get(0).(models.HerdStatistics), args.Error(1)
}

func (m *mockRepository) ListAggregates(ctx context.Context, limit, offset int) ([]breeding.AggregateRef, error) {
	args := m.Called(ctx, limit, offset)
	refs, _ := args.Get(0).([]breeding.AggregateRef)
	return refs, args.Error(1)
}

type recordingInvalidator struct {
	mu      sync.Mutex
	cleared []int64
}

func (r *recordingInvalidator) ClearCattle(cattleID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, cattleID)
}

var nilTime *time.Time

func TestRunBatch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC)
	refs := []breeding.AggregateRef{
		{CattleID: 1, OwnerID: 7, LastUpdated: now.Add(-time.Hour)},
		{CattleID: 2, OwnerID: 7, LastUpdated: now.Add(-48 * time.Hour)},
		{CattleID: 3, OwnerID: 7, LastUpdated: now.Add(-48 * time.Hour)},
	}
	history := []models.BreedingEvent{models.Inseminate{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}

	newService := func(repo breeding.Repository, inv CacheInvalidator) *Service {
		svc := NewService(repo, recompute.NewService(nil), nil, WithWorkers(2), WithCacheInvalidator(inv))
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("fresh aggregates are skipped and failures collected", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("ListAggregates", ctx, 10, 0).Return(refs, nil)
		repo.On("GetBreedingHistory", ctx, int64(2), nilTime, nilTime).Return(history, nil)
		repo.On("GetBreedingHistory", ctx, int64(3), nilTime, nilTime).Return(nil, errors.New("cursor closed"))
		repo.On("UpdateBreedingStatusDays", ctx, int64(2), 1, mock.Anything, mock.Anything, now).Return(nil)
		inv := &recordingInvalidator{}

		result := newService(repo, inv).RunBatch(ctx, models.BatchOptions{Limit: 10})

		assert.Equal(t, 3, result.ProcessedCount)
		assert.Equal(t, 1, result.UpdatedCount)
		assert.Equal(t, 1, result.SkippedCount)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, int64(3), result.Errors[0].CattleID)
		assert.Contains(t, result.Errors[0].Message, "cursor closed")
		assert.Equal(t, []int64{2}, inv.cleared)
		assert.Equal(t, now, result.StartedAt)
		repo.AssertNotCalled(t, "GetBreedingHistory", ctx, int64(1), nilTime, nilTime)
		repo.AssertExpectations(t)
	})

	t.Run("force refreshes fresh aggregates too", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("ListAggregates", ctx, DefaultLimit, 0).Return(refs[:2], nil)
		repo.On("GetBreedingHistory", ctx, mock.AnythingOfType("int64"), nilTime, nilTime).Return(history, nil)
		repo.On("UpdateBreedingStatusDays", ctx, mock.AnythingOfType("int64"), 1, mock.Anything, mock.Anything, now).Return(nil)

		result := newService(repo, &recordingInvalidator{}).RunBatch(ctx, models.BatchOptions{Force: true})

		assert.Equal(t, 2, result.UpdatedCount)
		assert.Zero(t, result.SkippedCount)
		assert.Empty(t, result.Errors)
		repo.AssertNumberOfCalls(t, "UpdateBreedingStatusDays", 2)
	})

	t.Run("listing failure still yields a result", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("ListAggregates", ctx, DefaultLimit, 5).Return(nil, errors.New("no reachable servers"))

		result := newService(repo, nil).RunBatch(ctx, models.BatchOptions{Limit: -1, Offset: 5})

		assert.Zero(t, result.ProcessedCount)
		require.Len(t, result.Errors, 1)
		assert.Zero(t, result.Errors[0].CattleID)
		assert.Contains(t, result.Errors[0].Message, "list breeding aggregates")
	})

	t.Run("item error does not leak across items", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("ListAggregates", ctx, DefaultLimit, 0).Return(refs[1:], nil)
		repo.On("GetBreedingHistory", ctx, mock.AnythingOfType("int64"), nilTime, nilTime).Return(history, nil)
		repo.On("UpdateBreedingStatusDays", ctx, int64(2), 1, mock.Anything, mock.Anything, now).Return(nil)
		repo.On("UpdateBreedingStatusDays", ctx, int64(3), 1, mock.Anything, mock.Anything, now).
			Return(models.NewNotFoundError("breeding record for cattle", 3))

		result := newService(repo, nil).RunBatch(ctx, models.BatchOptions{})

		assert.Equal(t, 1, result.UpdatedCount)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "breeding record for cattle 3 not found", result.Errors[0].Message)
	})
}

// racingRepository records a pregnancy confirmation right after the batch has
// read the history, as a concurrent RecordEvent would.
type racingRepository struct {
	*memory.Repository
	event models.BreedingEvent
	ref   time.Time
	done  bool
}

func (r *racingRepository) GetBreedingHistory(ctx context.Context, cattleID int64, start, end *time.Time) ([]models.BreedingEvent, error) {
	events, err := r.Repository.GetBreedingHistory(ctx, cattleID, start, end)
	if err != nil || r.done {
		return events, err
	}
	r.done = true

	stored, err := r.FindByCattleID(ctx, cattleID)
	if err != nil {
		return nil, err
	}
	next, err := stored.ApplyEvent(r.event, r.ref)
	if err != nil {
		return nil, err
	}
	if _, err := r.Save(ctx, next); err != nil {
		return nil, err
	}
	return events, nil
}

func TestRunBatchDoesNotOverwriteConcurrentEvent(t *testing.T) {
	ctx := context.Background()
	seededAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC)

	mem := memory.NewRepository()
	aggregate, err := breeding.New(1, 7, seededAt).ApplyEvent(models.Inseminate{Timestamp: seededAt}, seededAt)
	require.NoError(t, err)
	_, err = mem.Save(ctx, aggregate)
	require.NoError(t, err)

	repo := &racingRepository{
		Repository: mem,
		event:      models.ConfirmPregnancy{Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), ExpectedCalvingDate: time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)},
		ref:        now,
	}
	inv := &recordingInvalidator{}
	svc := NewService(repo, recompute.NewService(nil), nil, WithCacheInvalidator(inv))
	svc.now = func() time.Time { return now }

	result := svc.RunBatch(ctx, models.BatchOptions{Force: true})

	assert.Equal(t, 1, result.ProcessedCount)
	assert.Zero(t, result.UpdatedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Empty(t, result.Errors)
	assert.Empty(t, inv.cleared)

	stored, err := mem.FindByCattleID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.PhasePregnant, stored.Status().Phase())
	assert.Equal(t, 3, stored.Version())
	assert.NoError(t, stored.IsValid())

	_, err = stored.ApplyEvent(models.Calve{Timestamp: now}, now)
	assert.NoError(t, err)
}

func TestRunAllPagesThroughTheHerd(t *testing.T) {
	ctx := context.Background()
	seededAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 2, 30, 0, 0, time.UTC)

	repo := memory.NewRepository()
	for id := int64(1); id <= 5; id++ {
		aggregate, err := breeding.New(id, 7, seededAt).ApplyEvent(models.Inseminate{Timestamp: seededAt}, seededAt)
		require.NoError(t, err)
		_, err = repo.Save(ctx, aggregate)
		require.NoError(t, err)
	}

	svc := NewService(repo, recompute.NewService(nil), nil)
	svc.now = func() time.Time { return now }

	result := svc.RunAll(ctx, 2, false)

	assert.Equal(t, 5, result.ProcessedCount)
	assert.Equal(t, 5, result.UpdatedCount)
	assert.Empty(t, result.Errors)

	stored, err := repo.FindByCattleID(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 14, stored.Status().(models.Inseminated).DaysAfterInsemination)
	assert.Equal(t, 2, stored.Version())
	assert.Equal(t, now, stored.LastUpdated())

	again := svc.RunAll(ctx, 2, false)
	assert.Equal(t, 5, again.SkippedCount)
}
