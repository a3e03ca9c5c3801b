// Package breeding holds the pure breeding lifecycle core: the status state
// machine, the summary calculator and the per-animal aggregate.
package breeding

import (
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// Transition computes the status that follows current once event is applied,
// with day counters derived for referenceDate. Pairs outside the lifecycle
// table fail with a ValidationError naming both the phase and the event.
//
// Negative day counters are returned as is when referenceDate precedes the
// event; rejecting future events is the caller's job.
func Transition(current models.BreedingStatus, event models.BreedingEvent, referenceDate time.Time) (models.BreedingStatus, error) {
	if current == nil {
		current = models.InitialStatus()
	}
	if event == nil {
		return nil, models.NewValidationError("event", "event is required")
	}

	switch from := current.(type) {
	case models.NotBreeding:
		if e, ok := event.(models.Inseminate); ok {
			var daysOpen *int
			if from.LastCalvedAt != nil {
				daysOpen = intPtr(models.DaysBetween(*from.LastCalvedAt, e.Timestamp))
			}
			return firstInsemination(from.Parity, e, daysOpen, referenceDate), nil
		}

	case models.Inseminated:
		switch e := event.(type) {
		case models.Inseminate:
			return models.Inseminated{
				Parity:                from.Parity,
				DaysAfterInsemination: models.DaysBetween(e.Timestamp, referenceDate),
				InseminationCount:     from.InseminationCount + 1,
				DaysOpen:              from.DaysOpen,
				InseminatedAt:         e.Timestamp,
				CycleStartedAt:        from.CycleStartedAt,
				Memo:                  e.Memo,
			}, nil
		case models.ConfirmPregnancy:
			return pregnantFrom(from.Parity, e, referenceDate), nil
		case models.StartNewCycle:
			return models.NotBreeding{Parity: from.Parity, Memo: e.Memo}, nil
		}

	case models.Pregnant:
		switch e := event.(type) {
		case models.Calve:
			return postCalvingFrom(from.Parity+1, e, referenceDate), nil
		case models.StartNewCycle:
			return models.NotBreeding{Parity: from.Parity, Memo: e.Memo}, nil
		}

	case models.PostCalving:
		switch e := event.(type) {
		case models.Inseminate:
			daysOpen := models.DaysBetween(from.CalvedAt, e.Timestamp)
			return firstInsemination(from.Parity, e, &daysOpen, referenceDate), nil
		case models.StartNewCycle:
			// days after calving keep counting from the calving, not the restart
			calvedAt := from.CalvedAt
			return models.NotBreeding{
				Parity:           from.Parity,
				DaysAfterCalving: intPtr(models.DaysBetween(calvedAt, referenceDate)),
				LastCalvedAt:     &calvedAt,
				Memo:             e.Memo,
			}, nil
		}
	}

	return nil, invalidTransition(current.Phase(), event.Type())
}

// ExpectedPhaseAfter returns the phase an accepted event of type t leaves the
// animal in.
func ExpectedPhaseAfter(t models.EventType) (models.Phase, bool) {
	switch t {
	case models.EventInseminate:
		return models.PhaseInseminated, true
	case models.EventConfirmPregnancy:
		return models.PhasePregnant, true
	case models.EventCalve:
		return models.PhasePostCalving, true
	case models.EventStartNewCycle:
		return models.PhaseNotBreeding, true
	default:
		return "", false
	}
}

func firstInsemination(parity int, e models.Inseminate, daysOpen *int, ref time.Time) models.Inseminated {
	return models.Inseminated{
		Parity:                parity,
		DaysAfterInsemination: models.DaysBetween(e.Timestamp, ref),
		InseminationCount:     1,
		DaysOpen:              daysOpen,
		InseminatedAt:         e.Timestamp,
		CycleStartedAt:        e.Timestamp,
		Memo:                  e.Memo,
	}
}

func pregnantFrom(parity int, e models.ConfirmPregnancy, ref time.Time) models.Pregnant {
	return models.Pregnant{
		Parity:                      parity,
		PregnancyDays:               models.DaysBetween(e.Timestamp, ref),
		ExpectedCalvingDate:         e.ExpectedCalvingDate,
		ScheduledPregnancyCheckDate: e.ScheduledPregnancyCheckDate,
		ConfirmedAt:                 e.Timestamp,
		Memo:                        e.Memo,
	}
}

func postCalvingFrom(parity int, e models.Calve, ref time.Time) models.PostCalving {
	return models.PostCalving{
		Parity:           parity,
		DaysAfterCalving: models.DaysBetween(e.Timestamp, ref),
		IsDifficultBirth: e.IsDifficultBirth,
		CalvedAt:         e.Timestamp,
		Memo:             e.Memo,
	}
}

func invalidTransition(phase models.Phase, event models.EventType) error {
	return models.NewValidationError("event", "cannot apply %s while %s", event.Label(), phase.Label())
}

func intPtr(v int) *int {
	return &v
}
