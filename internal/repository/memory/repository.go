// Package memory provides an in-process breeding repository used by tests and
// single-node development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

var _ breeding.Repository = (*Repository)(nil)

// Repository keeps aggregates keyed by cattle id behind a read/write lock.
type Repository struct {
	mu         sync.RWMutex
	aggregates map[int64]breeding.Aggregate
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{aggregates: make(map[int64]breeding.Aggregate)}
}

// FindByCattleID returns the stored aggregate or nil.
func (r *Repository) FindByCattleID(_ context.Context, cattleID int64) (*breeding.Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aggregate, ok := r.aggregates[cattleID]
	if !ok {
		return nil, nil
	}
	return &aggregate, nil
}

// Save stores aggregate if its version follows the stored one. An unknown
// animal is accepted only when the aggregate was built from breeding.New.
func (r *Repository) Save(_ context.Context, aggregate breeding.Aggregate) (breeding.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.aggregates[aggregate.CattleID()]
	switch {
	case !exists && aggregate.Version() != aggregate.HistoryLen()+1:
		return breeding.Aggregate{}, &models.ConflictError{Message: models.ErrConcurrencyConflict.Error(), Cause: models.ErrConcurrencyConflict}
	case exists && aggregate.Version() == 1:
		return breeding.Aggregate{}, &models.ConflictError{Message: "breeding record already exists for this animal"}
	case exists && stored.Version() != aggregate.Version()-1:
		return breeding.Aggregate{}, &models.ConflictError{Message: models.ErrConcurrencyConflict.Error(), Cause: models.ErrConcurrencyConflict}
	}

	r.aggregates[aggregate.CattleID()] = aggregate
	return aggregate, nil
}

// GetBreedingHistory returns the animal's events ascending by timestamp.
func (r *Repository) GetBreedingHistory(_ context.Context, cattleID int64, start, end *time.Time) ([]models.BreedingEvent, error) {
	r.mu.RLock()
	aggregate, ok := r.aggregates[cattleID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var out []models.BreedingEvent
	for _, event := range breeding.SortedByTime(aggregate.History()) {
		ts := event.OccurredAt()
		if start != nil && ts.Before(*start) {
			continue
		}
		if end != nil && ts.After(*end) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

// FindCattleNeedingAttention applies breeding.NeedsAttention to the owner's
// animals, with day counters re-derived for referenceDate.
func (r *Repository) FindCattleNeedingAttention(_ context.Context, ownerID int64, referenceDate time.Time) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0)
	for id, aggregate := range r.aggregates {
		if aggregate.OwnerID() != ownerID {
			continue
		}
		if breeding.NeedsAttention(aggregate.Status(), referenceDate) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UpdateBreedingStatusDays replaces the derived fields without touching the
// version or history, provided the history still holds historyLen events.
func (r *Repository) UpdateBreedingStatusDays(_ context.Context, cattleID int64, historyLen int, status models.BreedingStatus, summary models.BreedingSummary, referenceDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	aggregate, ok := r.aggregates[cattleID]
	if !ok {
		return models.NewNotFoundError("breeding record for cattle", cattleID)
	}
	if aggregate.HistoryLen() != historyLen {
		return &models.ConflictError{Message: models.ErrConcurrencyConflict.Error(), Cause: models.ErrConcurrencyConflict}
	}
	r.aggregates[cattleID] = aggregate.WithDerived(status, summary, referenceDate)
	return nil
}

// GetBreedingStatistics counts the owner's events within [start, end].
func (r *Repository) GetBreedingStatistics(_ context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var inseminations, pregnancies, calvings, difficult int
	for _, aggregate := range r.aggregates {
		if aggregate.OwnerID() != ownerID {
			continue
		}
		for _, event := range aggregate.EventsBetween(start, end) {
			switch e := event.(type) {
			case models.Inseminate:
				inseminations++
			case models.ConfirmPregnancy:
				pregnancies++
			case models.Calve:
				calvings++
				if e.IsDifficultBirth {
					difficult++
				}
			}
		}
	}
	return breeding.NewHerdStatistics(ownerID, start, end, inseminations, pregnancies, calvings, difficult), nil
}

// ListAggregates returns a page of aggregates ordered by cattle id.
func (r *Repository) ListAggregates(_ context.Context, limit, offset int) ([]breeding.AggregateRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]breeding.AggregateRef, 0, len(r.aggregates))
	for _, aggregate := range r.aggregates {
		refs = append(refs, breeding.AggregateRef{
			CattleID:    aggregate.CattleID(),
			OwnerID:     aggregate.OwnerID(),
			LastUpdated: aggregate.LastUpdated(),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].CattleID < refs[j].CattleID })

	if offset >= len(refs) {
		return []breeding.AggregateRef{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(refs) {
		end = len(refs)
	}
	return refs[offset:end], nil
}
