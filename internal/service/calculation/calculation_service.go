package calculation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/service/recompute"
)

// DefaultTTL bounds how long a cached result is served within its day.
const DefaultTTL = time.Hour

// Recomputer derives status and summary from an event log.
type Recomputer interface {
	Recompute(cattleID int64, events []models.BreedingEvent, referenceDate time.Time) (recompute.Result, error)
}

// Options tunes a single calculation.
type Options struct {
	ForceRecalculation bool
}

// Result bundles an animal's freshly derived breeding figures.
type Result struct {
	CattleID     int64
	Status       models.BreedingStatus
	Summary      models.BreedingSummary
	CacheHit     bool
	CalculatedAt time.Time
}

// Service recomputes breeding figures on read, caching them for the rest of
// the day.
type Service struct {
	repo       breeding.Repository
	recomputer Recomputer
	cache      *ResultCache
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the real-time calculation service.
func NewService(repository breeding.Repository, recomputer Recomputer, cache *ResultCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewResultCache(DefaultTTL, time.UTC)
	}
	return &Service{
		repo:       repository,
		recomputer: recomputer,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// CalculateDetails returns the animal's status and summary as of now. Unless
// forced, a result computed earlier the same day and within the TTL is reused.
func (s *Service) CalculateDetails(ctx context.Context, cattleID int64, opts Options) (Result, error) {
	ref := s.now()

	if !opts.ForceRecalculation {
		if cached, ok := s.cache.Get(cattleID, ref, ref); ok {
			s.logger.Debug("breeding calculation cache hit", zap.Int64("cattle_id", cattleID))
			cached.CacheHit = true
			return cached, nil
		}
	}
	s.logger.Debug("breeding calculation cache miss",
		zap.Int64("cattle_id", cattleID),
		zap.Bool("forced", opts.ForceRecalculation))

	aggregate, err := s.repo.FindByCattleID(ctx, cattleID)
	if err != nil {
		return Result{}, models.WrapInfra("load breeding aggregate", err)
	}
	if aggregate == nil {
		return Result{}, models.NewNotFoundError("breeding record for cattle", cattleID)
	}

	events, err := s.repo.GetBreedingHistory(ctx, cattleID, nil, nil)
	if err != nil {
		return Result{}, models.WrapInfra("load breeding history", err)
	}

	computed, err := s.recomputer.Recompute(cattleID, events, ref)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		CattleID:     cattleID,
		Status:       computed.Status,
		Summary:      computed.Summary,
		CalculatedAt: ref,
	}
	s.cache.Put(cattleID, ref, result, ref)
	return result, nil
}

// CalculateBatch runs CalculateDetails for every id concurrently. Results keep
// the order of ids; the first failure cancels the rest and is returned.
func (s *Service) CalculateBatch(ctx context.Context, cattleIDs []int64, opts Options) ([]Result, error) {
	results := make([]Result, len(cattleIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range cattleIDs {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.CalculateDetails(gctx, id, opts)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ClearCache drops every cached result.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// ClearCattle drops the cached results of one animal.
func (s *Service) ClearCattle(cattleID int64) {
	s.cache.ClearCattle(cattleID)
}

// SweepExpired drops expired cache entries.
func (s *Service) SweepExpired() int {
	removed := s.cache.Sweep(s.now())
	if removed > 0 {
		s.logger.Debug("swept expired breeding calculations", zap.Int("removed", removed))
	}
	return removed
}
