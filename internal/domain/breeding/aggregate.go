package breeding

import (
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// Aggregate is the consistency boundary of one animal's breeding data. Values
// are never mutated after construction: ApplyEvent returns a new Aggregate and
// accessors hand out copies, so older snapshots stay valid for readers.
type Aggregate struct {
	cattleID    int64
	ownerID     int64
	status      models.BreedingStatus
	summary     models.BreedingSummary
	history     []models.BreedingEvent
	version     int
	lastUpdated time.Time
}

// New creates the aggregate of an animal with no breeding history.
func New(cattleID, ownerID int64, now time.Time) Aggregate {
	return Aggregate{
		cattleID:    cattleID,
		ownerID:     ownerID,
		status:      models.InitialStatus(),
		summary:     Summarize(nil, now),
		version:     1,
		lastUpdated: now,
	}
}

// Snapshot carries the persisted fields of an aggregate.
type Snapshot struct {
	CattleID    int64
	OwnerID     int64
	Status      models.BreedingStatus
	Summary     models.BreedingSummary
	History     []models.BreedingEvent
	Version     int
	LastUpdated time.Time
}

// Rehydrate rebuilds an aggregate from stored fields without re-validating
// them; use IsValid to audit the result.
func Rehydrate(s Snapshot) Aggregate {
	status := s.Status
	if status == nil {
		status = models.InitialStatus()
	}
	return Aggregate{
		cattleID:    s.CattleID,
		ownerID:     s.OwnerID,
		status:      status,
		summary:     s.Summary,
		history:     cloneEvents(s.History),
		version:     s.Version,
		lastUpdated: s.LastUpdated,
	}
}

func (a Aggregate) CattleID() int64                 { return a.cattleID }
func (a Aggregate) OwnerID() int64                  { return a.ownerID }
func (a Aggregate) Status() models.BreedingStatus   { return a.status }
func (a Aggregate) Summary() models.BreedingSummary { return a.summary }
func (a Aggregate) Version() int                    { return a.version }
func (a Aggregate) LastUpdated() time.Time          { return a.lastUpdated }
func (a Aggregate) HistoryLen() int                 { return len(a.history) }

// History returns a copy of the ordered event log.
func (a Aggregate) History() []models.BreedingEvent {
	return cloneEvents(a.history)
}

// Snapshot exports the persisted fields.
func (a Aggregate) Snapshot() Snapshot {
	return Snapshot{
		CattleID:    a.cattleID,
		OwnerID:     a.ownerID,
		Status:      a.status,
		Summary:     a.summary,
		History:     a.History(),
		Version:     a.version,
		LastUpdated: a.lastUpdated,
	}
}

// ApplyEvent validates event against the aggregate and returns the next
// version. On error the receiver is untouched and the zero Aggregate is
// returned.
func (a Aggregate) ApplyEvent(event models.BreedingEvent, referenceDate time.Time) (Aggregate, error) {
	if event == nil {
		return Aggregate{}, models.NewValidationError("event", "event is required")
	}
	if event.OccurredAt().After(referenceDate) {
		return Aggregate{}, &models.ValidationError{Message: "Event timestamp cannot be in the future", Field: "timestamp"}
	}
	if n := len(a.history); n > 0 && event.OccurredAt().Before(a.history[n-1].OccurredAt()) {
		return Aggregate{}, &models.ValidationError{Message: "Events must be in chronological order", Field: "timestamp"}
	}

	next, err := Transition(a.status, event, referenceDate)
	if err != nil {
		return Aggregate{}, err
	}

	history := make([]models.BreedingEvent, len(a.history), len(a.history)+1)
	copy(history, a.history)
	history = append(history, event)

	return Aggregate{
		cattleID:    a.cattleID,
		ownerID:     a.ownerID,
		status:      next,
		summary:     Summarize(history, referenceDate),
		history:     history,
		version:     a.version + 1,
		lastUpdated: referenceDate,
	}, nil
}

// WithDerived returns a copy carrying refreshed status and summary. The
// version is kept: a derived-field refresh is not a new business event.
func (a Aggregate) WithDerived(status models.BreedingStatus, summary models.BreedingSummary, refreshedAt time.Time) Aggregate {
	a.history = cloneEvents(a.history)
	a.status = status
	a.summary = summary
	a.lastUpdated = refreshedAt
	return a
}

// IsValid checks that the stored status agrees with the last logged event.
// It is meant for periodic audits rather than per-write enforcement.
func (a Aggregate) IsValid() error {
	if len(a.history) == 0 {
		if a.status.Phase() != models.PhaseNotBreeding {
			return models.NewValidationError("status", "aggregate without history must be %s, found %s",
				models.PhaseNotBreeding.Label(), a.status.Phase().Label())
		}
		return nil
	}

	last := a.history[len(a.history)-1]
	expected, ok := ExpectedPhaseAfter(last.Type())
	if !ok {
		return models.NewValidationError("history", "unrecognized event type %q in history", string(last.Type()))
	}
	if a.status.Phase() != expected {
		return models.NewValidationError("status", "status %s does not match last event %s (expected %s)",
			a.status.Phase().Label(), last.Type().Label(), expected.Label())
	}
	if a.status.CurrentParity() < 0 {
		return models.NewValidationError("parity", "parity cannot be negative")
	}
	return nil
}

func cloneEvents(events []models.BreedingEvent) []models.BreedingEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]models.BreedingEvent, len(events))
	copy(out, events)
	return out
}
