package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/service/calculation"
)

const (
	// DefaultLimit is the page size used when a caller passes none.
	DefaultLimit = 100
	// DefaultStaleAfter is how old stored figures must be before an unforced
	// sweep refreshes them.
	DefaultStaleAfter = 24 * time.Hour
	defaultWorkers    = 4
)

// CacheInvalidator drops cached figures of an animal whose stored figures
// changed.
type CacheInvalidator interface {
	ClearCattle(cattleID int64)
}

// Service refreshes stored derived breeding fields across the herd.
type Service struct {
	repo        breeding.Repository
	recomputer  calculation.Recomputer
	invalidator CacheInvalidator
	logger      *zap.Logger
	now         func() time.Time
	staleAfter  time.Duration
	workers     int
}

// Option configures the batch service.
type Option func(*Service)

// WithStaleAfter overrides the freshness window for unforced sweeps.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithWorkers bounds how many animals are refreshed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCacheInvalidator clears real-time cache entries of refreshed animals.
func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// NewService wires the batch recalculation service.
func NewService(repository breeding.Repository, recomputer calculation.Recomputer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:       repository,
		recomputer: recomputer,
		logger:     logger,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunBatch refreshes one page of aggregates. Individual failures are
// collected in the result and never abort the sweep; only a failure to list
// the page is reported as an item-less result with one error entry.
func (s *Service) RunBatch(ctx context.Context, opts models.BatchOptions) models.BatchResult {
	started := s.now()
	result := models.BatchResult{StartedAt: started, Errors: []models.BatchItemError{}}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	refs, err := s.repo.ListAggregates(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list breeding aggregates", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		result.Errors = append(result.Errors, models.BatchItemError{Message: models.WrapInfra("list breeding aggregates", err).Error()})
		result.Duration = s.now().Sub(started)
		return result
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			state, itemErr := s.refresh(ctx, ref, opts.Force, started)

			mu.Lock()
			defer mu.Unlock()
			result.ProcessedCount++
			switch {
			case itemErr != nil:
				result.Errors = append(result.Errors, models.BatchItemError{CattleID: ref.CattleID, Message: itemErr.Error()})
			case state == outcomeSkipped:
				result.SkippedCount++
			default:
				result.UpdatedCount++
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = s.now().Sub(started)
	s.logger.Info("breeding batch recalculation finished",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("duration", result.Duration))
	return result
}

// RunAll pages through every aggregate until a short page is returned.
func (s *Service) RunAll(ctx context.Context, pageSize int, force bool) models.BatchResult {
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}
	total := models.BatchResult{StartedAt: s.now(), Errors: []models.BatchItemError{}}
	for offset := 0; ; offset += pageSize {
		if ctx.Err() != nil {
			break
		}
		page := s.RunBatch(ctx, models.BatchOptions{Limit: pageSize, Offset: offset, Force: force})
		total.ProcessedCount += page.ProcessedCount
		total.UpdatedCount += page.UpdatedCount
		total.SkippedCount += page.SkippedCount
		total.Errors = append(total.Errors, page.Errors...)
		if page.ProcessedCount < pageSize {
			break
		}
	}
	total.Duration = s.now().Sub(total.StartedAt)
	return total
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
)

func (s *Service) refresh(ctx context.Context, ref breeding.AggregateRef, force bool, now time.Time) (outcome, error) {
	if !force && now.Sub(ref.LastUpdated) < s.staleAfter {
		s.logger.Debug("skip fresh breeding aggregate", zap.Int64("cattle_id", ref.CattleID), zap.Time("last_updated", ref.LastUpdated))
		return outcomeSkipped, nil
	}

	events, err := s.repo.GetBreedingHistory(ctx, ref.CattleID, nil, nil)
	if err != nil {
		return outcomeUpdated, models.WrapInfra("load breeding history", err)
	}

	computed, err := s.recomputer.Recompute(ref.CattleID, events, now)
	if err != nil {
		return outcomeUpdated, err
	}

	err = s.repo.UpdateBreedingStatusDays(ctx, ref.CattleID, len(events), computed.Status, computed.Summary, now)
	if errors.Is(err, models.ErrConcurrencyConflict) {
		// A new event was recorded after the history was read; its write already
		// carries fresh derived fields.
		s.logger.Debug("skip breeding aggregate changed during refresh", zap.Int64("cattle_id", ref.CattleID))
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeUpdated, models.WrapInfra("update breeding status days", err)
	}

	if s.invalidator != nil {
		s.invalidator.ClearCattle(ref.CattleID)
	}
	s.logger.Debug("refreshed breeding aggregate", zap.Int64("cattle_id", ref.CattleID), zap.String("phase", string(computed.Status.Phase())))
	return outcomeUpdated, nil
}
