package handlers

import (
	"encoding/json"
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/service/calculation"
)

// eventRequest is the JSON body of POST .../breeding/events. Type selects
// which of the optional fields apply.
type eventRequest struct {
	Type                        string     `json:"type" binding:"required"`
	Timestamp                   time.Time  `json:"timestamp"`
	Memo                        string     `json:"memo"`
	ExpectedCalvingDate         *time.Time `json:"expected_calving_date"`
	ScheduledPregnancyCheckDate *time.Time `json:"scheduled_pregnancy_check_date"`
	IsDifficultBirth            bool       `json:"is_difficult_birth"`
}

// toEvent never fails; unknown types come back as models.UnrecognizedEvent and
// are rejected by the lifecycle service.
func (r eventRequest) toEvent() models.BreedingEvent {
	switch models.EventType(r.Type) {
	case models.EventInseminate:
		return models.Inseminate{Timestamp: r.Timestamp, Memo: r.Memo}
	case models.EventConfirmPregnancy:
		event := models.ConfirmPregnancy{
			Timestamp:                   r.Timestamp,
			ScheduledPregnancyCheckDate: r.ScheduledPregnancyCheckDate,
			Memo:                        r.Memo,
		}
		if r.ExpectedCalvingDate != nil {
			event.ExpectedCalvingDate = *r.ExpectedCalvingDate
		}
		return event
	case models.EventCalve:
		return models.Calve{Timestamp: r.Timestamp, IsDifficultBirth: r.IsDifficultBirth, Memo: r.Memo}
	case models.EventStartNewCycle:
		return models.StartNewCycle{Timestamp: r.Timestamp, Memo: r.Memo}
	default:
		return models.UnrecognizedEvent{Kind: r.Type, Timestamp: r.Timestamp, Memo: r.Memo}
	}
}

type batchRequest struct {
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
	Force  bool `json:"force"`
}

type statusView struct {
	Phase                       models.Phase `json:"phase"`
	Parity                      int          `json:"parity"`
	Memo                        string       `json:"memo,omitempty"`
	DaysAfterCalving            *int         `json:"days_after_calving,omitempty"`
	DaysAfterInsemination       *int         `json:"days_after_insemination,omitempty"`
	InseminationCount           *int         `json:"insemination_count,omitempty"`
	DaysOpen                    *int         `json:"days_open,omitempty"`
	PregnancyDays               *int         `json:"pregnancy_days,omitempty"`
	ExpectedCalvingDate         *time.Time   `json:"expected_calving_date,omitempty"`
	ScheduledPregnancyCheckDate *time.Time   `json:"scheduled_pregnancy_check_date,omitempty"`
	IsDifficultBirth            *bool        `json:"is_difficult_birth,omitempty"`
}

type plainStatusView statusView

type notBreedingView struct {
	plainStatusView
	DaysAfterCalving *int `json:"days_after_calving"`
}

type inseminatedView struct {
	plainStatusView
	DaysOpen *int `json:"days_open"`
}

// MarshalJSON writes the nullable counters of the current phase as explicit
// nulls instead of dropping them.
func (v statusView) MarshalJSON() ([]byte, error) {
	switch v.Phase {
	case models.PhaseNotBreeding:
		return json.Marshal(notBreedingView{plainStatusView(v), v.DaysAfterCalving})
	case models.PhaseInseminated:
		return json.Marshal(inseminatedView{plainStatusView(v), v.DaysOpen})
	}
	return json.Marshal(plainStatusView(v))
}

func newStatusView(status models.BreedingStatus) statusView {
	view := statusView{Phase: status.Phase(), Parity: status.CurrentParity(), Memo: status.Note()}
	switch s := status.(type) {
	case models.NotBreeding:
		view.DaysAfterCalving = s.DaysAfterCalving
	case models.Inseminated:
		view.DaysAfterInsemination = &s.DaysAfterInsemination
		view.InseminationCount = &s.InseminationCount
		view.DaysOpen = s.DaysOpen
	case models.Pregnant:
		view.PregnancyDays = &s.PregnancyDays
		view.ExpectedCalvingDate = &s.ExpectedCalvingDate
		view.ScheduledPregnancyCheckDate = s.ScheduledPregnancyCheckDate
	case models.PostCalving:
		view.DaysAfterCalving = &s.DaysAfterCalving
		view.IsDifficultBirth = &s.IsDifficultBirth
	}
	return view
}

type summaryView struct {
	TotalInseminationCount int       `json:"total_insemination_count"`
	PregnancyHeadCount     int       `json:"pregnancy_head_count"`
	DifficultBirthCount    int       `json:"difficult_birth_count"`
	PregnancySuccessRate   *int      `json:"pregnancy_success_rate"`
	AveragePregnancyPeriod *int      `json:"average_pregnancy_period"`
	AverageCalvingInterval *int      `json:"average_calving_interval"`
	AverageDaysOpen        *int      `json:"average_days_open"`
	LastUpdated            time.Time `json:"last_updated"`
}

func newSummaryView(s models.BreedingSummary) summaryView {
	return summaryView{
		TotalInseminationCount: s.TotalInseminationCount,
		PregnancyHeadCount:     s.PregnancyHeadCount,
		DifficultBirthCount:    s.DifficultBirthCount,
		PregnancySuccessRate:   s.PregnancySuccessRate,
		AveragePregnancyPeriod: s.AveragePregnancyPeriod,
		AverageCalvingInterval: s.AverageCalvingInterval,
		AverageDaysOpen:        s.AverageDaysOpen,
		LastUpdated:            s.LastUpdated,
	}
}

type cycleView struct {
	Phase          models.Phase `json:"phase"`
	CycleStartDate *time.Time   `json:"cycle_start_date,omitempty"`
	DaysInCycle    *int         `json:"days_in_cycle,omitempty"`
	NextAction     string       `json:"next_action,omitempty"`
	NextActionDue  *time.Time   `json:"next_action_due,omitempty"`
}

type aggregateView struct {
	CattleID       int64       `json:"cattle_id"`
	OwnerID        int64       `json:"owner_id"`
	Version        int         `json:"version"`
	EventCount     int         `json:"event_count"`
	LastUpdated    time.Time   `json:"last_updated"`
	Status         statusView  `json:"status"`
	Summary        summaryView `json:"summary"`
	Cycle          *cycleView  `json:"cycle,omitempty"`
	NeedsAttention *bool       `json:"needs_attention,omitempty"`
}

// newAggregateView renders a. When withDerived is set, the day counters are
// re-derived for ref and the cycle summary and attention flag are included.
func newAggregateView(a breeding.Aggregate, ref time.Time, withDerived bool) aggregateView {
	view := aggregateView{
		CattleID:    a.CattleID(),
		OwnerID:     a.OwnerID(),
		Version:     a.Version(),
		EventCount:  a.HistoryLen(),
		LastUpdated: a.LastUpdated(),
		Status:      newStatusView(a.Status()),
		Summary:     newSummaryView(a.Summary()),
	}
	if !withDerived {
		return view
	}

	view.Status = newStatusView(a.Status().AsOf(ref))
	cycle := a.CyclePhase(ref)
	view.Cycle = &cycleView{
		Phase:          cycle.Phase,
		CycleStartDate: cycle.CycleStartDate,
		DaysInCycle:    cycle.DaysInCycle,
		NextAction:     cycle.NextAction,
		NextActionDue:  cycle.NextActionDue,
	}
	attention := a.NeedsAttention(ref)
	view.NeedsAttention = &attention
	return view
}

type detailsView struct {
	CattleID     int64       `json:"cattle_id"`
	Status       statusView  `json:"status"`
	Summary      summaryView `json:"summary"`
	CacheHit     bool        `json:"cache_hit"`
	CalculatedAt time.Time   `json:"calculated_at"`
}

func newDetailsView(r calculation.Result) detailsView {
	return detailsView{
		CattleID:     r.CattleID,
		Status:       newStatusView(r.Status),
		Summary:      newSummaryView(r.Summary),
		CacheHit:     r.CacheHit,
		CalculatedAt: r.CalculatedAt,
	}
}

type statisticsView struct {
	OwnerID              int64     `json:"owner_id"`
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	TotalInseminations   int       `json:"total_inseminations"`
	TotalPregnancies     int       `json:"total_pregnancies"`
	TotalCalvings        int       `json:"total_calvings"`
	AveragePregnancyRate *float64  `json:"average_pregnancy_rate"`
	DifficultBirthRate   *float64  `json:"difficult_birth_rate"`
}

func newStatisticsView(s models.HerdStatistics) statisticsView {
	return statisticsView{
		OwnerID:              s.OwnerID,
		Start:                s.Start,
		End:                  s.End,
		TotalInseminations:   s.TotalInseminations,
		TotalPregnancies:     s.TotalPregnancies,
		TotalCalvings:        s.TotalCalvings,
		AveragePregnancyRate: s.AveragePregnancyRate,
		DifficultBirthRate:   s.DifficultBirthRate,
	}
}
