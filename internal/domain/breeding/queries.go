package breeding

import (
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

const (
	PregnancyCheckAfter    = 21 * 24 * time.Hour
	CalvingPrepWindow      = 30 * 24 * time.Hour
	VoluntaryWaitingPeriod = 60 * 24 * time.Hour
)

// Next-action labels reported by CyclePhase.
const (
	ActionFirstInsemination = "first insemination"
	ActionPregnancyCheck    = "pregnancy check"
	ActionCalvingPrep       = "calving prep"
	ActionExpectedCalving   = "expected calving"
	ActionResumeBreeding    = "resume breeding"
)

// EventsBetween returns the logged events with start <= timestamp <= end.
func (a Aggregate) EventsBetween(start, end time.Time) []models.BreedingEvent {
	var out []models.BreedingEvent
	for _, event := range a.history {
		ts := event.OccurredAt()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, event)
	}
	return out
}

// LastEventOf returns the most recent event of type t.
func (a Aggregate) LastEventOf(t models.EventType) (models.BreedingEvent, bool) {
	for i := len(a.history) - 1; i >= 0; i-- {
		if a.history[i].Type() == t {
			return a.history[i], true
		}
	}
	return nil, false
}

// CyclePhase summarises the current cycle as of ref: when it began, how long
// it has run and what the herdsman should do next.
func (a Aggregate) CyclePhase(ref time.Time) models.CycleSummary {
	summary := models.CycleSummary{Phase: a.status.Phase()}

	var start *time.Time
	switch s := a.status.(type) {
	case models.NotBreeding:
		if event, ok := a.LastEventOf(models.EventStartNewCycle); ok {
			start = timePtr(event.OccurredAt())
		}
		summary.NextAction = ActionFirstInsemination
		if s.LastCalvedAt != nil {
			summary.NextActionDue = timePtr(s.LastCalvedAt.Add(VoluntaryWaitingPeriod))
		}

	case models.Inseminated:
		start = timePtr(s.CycleStartedAt)
		summary.NextAction = ActionPregnancyCheck
		summary.NextActionDue = timePtr(s.InseminatedAt.Add(PregnancyCheckAfter))

	case models.Pregnant:
		if event, ok := a.LastEventOf(models.EventInseminate); ok {
			start = timePtr(event.OccurredAt())
		} else {
			start = timePtr(s.ConfirmedAt)
		}
		prepFrom := s.ExpectedCalvingDate.Add(-CalvingPrepWindow)
		switch {
		case !ref.Before(prepFrom):
			summary.NextAction = ActionExpectedCalving
			summary.NextActionDue = timePtr(s.ExpectedCalvingDate)
		case s.ScheduledPregnancyCheckDate != nil && s.ScheduledPregnancyCheckDate.Before(prepFrom):
			summary.NextAction = ActionPregnancyCheck
			summary.NextActionDue = timePtr(*s.ScheduledPregnancyCheckDate)
		default:
			summary.NextAction = ActionCalvingPrep
			summary.NextActionDue = timePtr(prepFrom)
		}

	case models.PostCalving:
		start = timePtr(s.CalvedAt)
		summary.NextAction = ActionResumeBreeding
		summary.NextActionDue = timePtr(s.CalvedAt.Add(VoluntaryWaitingPeriod))
	}

	if start != nil {
		summary.CycleStartDate = start
		summary.DaysInCycle = intPtr(models.DaysBetween(*start, ref))
	}
	return summary
}

// NeedsAttention reports whether the animal is overdue for a herdsman action
// as of ref.
func (a Aggregate) NeedsAttention(ref time.Time) bool {
	return NeedsAttention(a.status, ref)
}

// NeedsAttention is the selection rule for cattle needing attention:
//   - inseminated more than 21 days ago without confirmation,
//   - pregnant with the scheduled check date passed or the expected calving
//     date passed,
//   - calved more than 60 days ago without a new insemination.
func NeedsAttention(status models.BreedingStatus, ref time.Time) bool {
	switch s := status.(type) {
	case models.Inseminated:
		return ref.Sub(s.InseminatedAt) > PregnancyCheckAfter
	case models.Pregnant:
		if s.ScheduledPregnancyCheckDate != nil && s.ScheduledPregnancyCheckDate.Before(ref) {
			return true
		}
		return s.ExpectedCalvingDate.Before(ref)
	case models.PostCalving:
		return ref.Sub(s.CalvedAt) > VoluntaryWaitingPeriod
	case models.NotBreeding:
		return s.LastCalvedAt != nil && ref.Sub(*s.LastCalvedAt) > VoluntaryWaitingPeriod
	default:
		return false
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
