package breeding

import (
	"context"
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// AggregateRef identifies a stored aggregate for batch sweeps.
type AggregateRef struct {
	CattleID    int64
	OwnerID     int64
	LastUpdated time.Time
}

// Repository is the storage port of the breeding core. Implementations
// return *models.InfraError for I/O failures, *models.ConflictError for
// version mismatches and (nil, nil) from FindByCattleID when no aggregate
// exists.
type Repository interface {
	FindByCattleID(ctx context.Context, cattleID int64) (*Aggregate, error)
	// Save upserts by cattle id. Version 1 inserts; any later version only
	// replaces the stored aggregate whose version is exactly one lower.
	Save(ctx context.Context, aggregate Aggregate) (Aggregate, error)
	// GetBreedingHistory returns events ascending by timestamp, optionally
	// bounded (inclusive) by start and end.
	GetBreedingHistory(ctx context.Context, cattleID int64, start, end *time.Time) ([]models.BreedingEvent, error)
	FindCattleNeedingAttention(ctx context.Context, ownerID int64, referenceDate time.Time) ([]int64, error)
	// UpdateBreedingStatusDays persists refreshed derived fields only; the
	// version and history are left untouched. historyLen is the number of
	// events the fields were computed from: when the stored history has a
	// different length a *models.ConflictError wrapping
	// models.ErrConcurrencyConflict is returned and nothing is written.
	UpdateBreedingStatusDays(ctx context.Context, cattleID int64, historyLen int, status models.BreedingStatus, summary models.BreedingSummary, referenceDate time.Time) error
	GetBreedingStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error)
	ListAggregates(ctx context.Context, limit, offset int) ([]AggregateRef, error)
}
