package recompute

import (
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// Result is the status and summary an event log implies for a reference date.
type Result struct {
	CattleID int64
	Status   models.BreedingStatus
	Summary  models.BreedingSummary
}

// Service derives breeding status and summary from a raw event log, ignoring
// whatever was stored before. It reads no clock besides the reference date it
// is given.
type Service struct {
	logger *zap.Logger
}

// NewService wires a recomputation service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Recompute sorts events ascending by timestamp and derives status and
// summary from scratch. An empty log yields the initial NotBreeding state.
//
// When the latest event has an unrecognized type the status falls back to the
// initial phase instead of failing, so one corrupt row cannot break reads.
func (s *Service) Recompute(cattleID int64, events []models.BreedingEvent, referenceDate time.Time) (Result, error) {
	if cattleID <= 0 {
		return Result{}, models.NewValidationError("cattle_id", "cattle id must be positive")
	}

	sorted := breeding.SortedByTime(events)
	for _, event := range sorted {
		if event.OccurredAt().After(referenceDate) {
			return Result{}, models.NewValidationError("timestamp", "event at %s is after reference date %s",
				event.OccurredAt().Format(time.RFC3339), referenceDate.Format(time.RFC3339))
		}
	}

	return Result{
		CattleID: cattleID,
		Status:   s.statusFrom(cattleID, sorted, referenceDate),
		Summary:  breeding.Summarize(sorted, referenceDate),
	}, nil
}

func (s *Service) statusFrom(cattleID int64, events []models.BreedingEvent, ref time.Time) models.BreedingStatus {
	if len(events) == 0 {
		return models.InitialStatus()
	}

	parity := countOf(events, models.EventCalve)
	latestIdx := len(events) - 1

	switch latest := events[latestIdx].(type) {
	case models.Calve:
		return models.PostCalving{
			Parity:           parity,
			DaysAfterCalving: models.DaysBetween(latest.Timestamp, ref),
			IsDifficultBirth: latest.IsDifficultBirth,
			CalvedAt:         latest.Timestamp,
			Memo:             latest.Memo,
		}

	case models.ConfirmPregnancy:
		return models.Pregnant{
			Parity:                      parity,
			PregnancyDays:               models.DaysBetween(latest.Timestamp, ref),
			ExpectedCalvingDate:         latest.ExpectedCalvingDate,
			ScheduledPregnancyCheckDate: latest.ScheduledPregnancyCheckDate,
			ConfirmedAt:                 latest.Timestamp,
			Memo:                        latest.Memo,
		}

	case models.Inseminate:
		return inseminatedFrom(events, latestIdx, parity, latest, ref)

	case models.StartNewCycle:
		status := models.NotBreeding{Parity: parity, Memo: latest.Memo}
		if prev, ok := previousKnown(events, latestIdx); ok {
			if calve, isCalve := prev.(models.Calve); isCalve {
				calvedAt := calve.Timestamp
				days := models.DaysBetween(calvedAt, ref)
				status.LastCalvedAt = &calvedAt
				status.DaysAfterCalving = &days
			}
		}
		return status

	default:
		s.logger.Warn("unrecognized latest breeding event, falling back to initial status",
			zap.Int64("cattle_id", cattleID),
			zap.String("event_type", string(latest.Type())),
			zap.Time("timestamp", latest.OccurredAt()))
		return models.InitialStatus()
	}
}

// inseminatedFrom rebuilds the Inseminated fields: the cycle starts after the
// last Calve or StartNewCycle, and days open is measured from a calving that
// directly precedes the cycle.
func inseminatedFrom(events []models.BreedingEvent, latestIdx, parity int, latest models.Inseminate, ref time.Time) models.Inseminated {
	boundary := -1
	for i := latestIdx - 1; i >= 0; i-- {
		t := events[i].Type()
		if t == models.EventCalve || t == models.EventStartNewCycle {
			boundary = i
			break
		}
	}

	count := 0
	var first time.Time
	for i := boundary + 1; i <= latestIdx; i++ {
		if e, ok := events[i].(models.Inseminate); ok {
			if count == 0 {
				first = e.Timestamp
			}
			count++
		}
	}

	var calvedAt *time.Time
	if boundary >= 0 {
		switch b := events[boundary].(type) {
		case models.Calve:
			calvedAt = &b.Timestamp
		case models.StartNewCycle:
			if prev, ok := previousKnown(events, boundary); ok {
				if calve, isCalve := prev.(models.Calve); isCalve {
					calvedAt = &calve.Timestamp
				}
			}
		}
	}

	var daysOpen *int
	if calvedAt != nil {
		days := models.DaysBetween(*calvedAt, first)
		daysOpen = &days
	}

	return models.Inseminated{
		Parity:                parity,
		DaysAfterInsemination: models.DaysBetween(latest.Timestamp, ref),
		InseminationCount:     count,
		DaysOpen:              daysOpen,
		InseminatedAt:         latest.Timestamp,
		CycleStartedAt:        first,
		Memo:                  latest.Memo,
	}
}

func previousKnown(events []models.BreedingEvent, idx int) (models.BreedingEvent, bool) {
	for i := idx - 1; i >= 0; i-- {
		if events[i].Type().IsKnown() {
			return events[i], true
		}
	}
	return nil, false
}

func countOf(events []models.BreedingEvent, t models.EventType) int {
	n := 0
	for _, event := range events {
		if event.Type() == t {
			n++
		}
	}
	return n
}
