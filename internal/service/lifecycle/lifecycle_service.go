package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// CacheInvalidator drops cached calculations of an animal after a write.
type CacheInvalidator interface {
	ClearCattle(cattleID int64)
}

// Service exposes the breeding use-cases to transports. Authorization of the
// requester is done by the caller.
type Service struct {
	repo        breeding.Repository
	invalidator CacheInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires the breeding use-case service. invalidator may be nil.
func NewService(repository breeding.Repository, invalidator CacheInvalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repository,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Initialize creates the breeding aggregate of an animal. It fails with a
// ConflictError when one already exists.
func (s *Service) Initialize(ctx context.Context, cmd models.InitializeCommand) (breeding.Aggregate, error) {
	if err := validateIdentity(cmd.RequesterUserID, cmd.CattleID); err != nil {
		return breeding.Aggregate{}, err
	}

	existing, err := s.repo.FindByCattleID(ctx, cmd.CattleID)
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("load breeding aggregate", err)
	}
	if existing != nil {
		return breeding.Aggregate{}, &models.ConflictError{Message: "breeding record already exists for this animal"}
	}

	saved, err := s.repo.Save(ctx, breeding.New(cmd.CattleID, cmd.RequesterUserID, s.now()))
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("save breeding aggregate", err)
	}

	s.logger.Info("breeding record initialized", zap.Int64("cattle_id", cmd.CattleID), zap.Int64("requester", cmd.RequesterUserID))
	return saved, nil
}

// RecordEvent appends one event to the animal's log. An animal without a
// breeding record gets one created first.
func (s *Service) RecordEvent(ctx context.Context, cmd models.RecordEventCommand) (breeding.Aggregate, error) {
	if err := validateIdentity(cmd.RequesterUserID, cmd.CattleID); err != nil {
		return breeding.Aggregate{}, err
	}
	if err := validateEvent(cmd.Event); err != nil {
		return breeding.Aggregate{}, err
	}

	now := s.now()
	current, err := s.repo.FindByCattleID(ctx, cmd.CattleID)
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("load breeding aggregate", err)
	}

	var aggregate breeding.Aggregate
	if current == nil {
		s.logger.Info("creating breeding record on first event", zap.Int64("cattle_id", cmd.CattleID))
		aggregate = breeding.New(cmd.CattleID, cmd.RequesterUserID, now)
	} else {
		aggregate = *current
	}

	next, err := aggregate.ApplyEvent(cmd.Event, now)
	if err != nil {
		return breeding.Aggregate{}, err
	}

	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("save breeding aggregate", err)
	}

	if s.invalidator != nil {
		s.invalidator.ClearCattle(cmd.CattleID)
	}

	s.logger.Info("breeding event recorded",
		zap.Int64("cattle_id", cmd.CattleID),
		zap.String("event", string(cmd.Event.Type())),
		zap.String("phase", string(saved.Status().Phase())),
		zap.Int("version", saved.Version()))
	return saved, nil
}

// GetStatus returns the stored aggregate, or nil when the animal has none.
func (s *Service) GetStatus(ctx context.Context, q models.StatusQuery) (*breeding.Aggregate, error) {
	if err := validateIdentity(q.RequesterUserID, q.CattleID); err != nil {
		return nil, err
	}
	aggregate, err := s.repo.FindByCattleID(ctx, q.CattleID)
	if err != nil {
		return nil, models.WrapInfra("load breeding aggregate", err)
	}
	return aggregate, nil
}

// GetCattleNeedingAttention lists the owner's animals overdue for an action.
func (s *Service) GetCattleNeedingAttention(ctx context.Context, ownerID int64) ([]int64, error) {
	if ownerID <= 0 {
		return nil, models.NewValidationError("owner_id", "owner id must be positive")
	}
	ids, err := s.repo.FindCattleNeedingAttention(ctx, ownerID, s.now())
	if err != nil {
		return nil, models.WrapInfra("find cattle needing attention", err)
	}
	return ids, nil
}

// GetHerdStatistics returns herd-level breeding outcomes for [start, end].
func (s *Service) GetHerdStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error) {
	if ownerID <= 0 {
		return models.HerdStatistics{}, models.NewValidationError("owner_id", "owner id must be positive")
	}
	if end.Before(start) {
		return models.HerdStatistics{}, models.NewValidationError("end", "end date must not precede start date")
	}
	stats, err := s.repo.GetBreedingStatistics(ctx, ownerID, start, end)
	if err != nil {
		return models.HerdStatistics{}, models.WrapInfra("load breeding statistics", err)
	}
	return stats, nil
}

func validateIdentity(requesterID, cattleID int64) error {
	if requesterID <= 0 {
		return models.NewValidationError("requester_user_id", "requester user id is required")
	}
	if cattleID <= 0 {
		return models.NewValidationError("cattle_id", "cattle id must be positive")
	}
	return nil
}

func validateEvent(event models.BreedingEvent) error {
	if event == nil {
		return models.NewValidationError("event", "event is required")
	}
	if !event.Type().IsKnown() {
		return models.NewValidationError("event", "unsupported event type %q", string(event.Type()))
	}
	if event.OccurredAt().IsZero() {
		return models.NewValidationError("timestamp", "event timestamp is required")
	}
	if e, ok := event.(models.ConfirmPregnancy); ok {
		if e.ExpectedCalvingDate.IsZero() {
			return models.NewValidationError("expected_calving_date", "expected calving date is required")
		}
		if e.ExpectedCalvingDate.Before(e.Timestamp) {
			return models.NewValidationError("expected_calving_date", "expected calving date must not precede the confirmation")
		}
	}
	return nil
}
