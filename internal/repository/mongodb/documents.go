package mongodb

import (
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

type aggregateDocument struct {
	CattleID      int64           `bson:"cattle_id"`
	OwnerID       int64           `bson:"owner_id"`
	Status        statusDocument  `bson:"status"`
	Summary       summaryDocument `bson:"summary"`
	Version       int             `bson:"version"`
	HistoryLength int             `bson:"history_length"`
	LastUpdated   time.Time       `bson:"last_updated"`
}

// statusDocument flattens the status variants; Phase selects which fields
// are meaningful.
type statusDocument struct {
	Phase                       string     `bson:"phase"`
	Parity                      int        `bson:"parity"`
	Memo                        string     `bson:"memo,omitempty"`
	DaysAfterCalving            *int       `bson:"days_after_calving,omitempty"`
	LastCalvedAt                *time.Time `bson:"last_calved_at,omitempty"`
	DaysAfterInsemination       *int       `bson:"days_after_insemination,omitempty"`
	InseminationCount           *int       `bson:"insemination_count,omitempty"`
	DaysOpen                    *int       `bson:"days_open,omitempty"`
	InseminatedAt               *time.Time `bson:"inseminated_at,omitempty"`
	CycleStartedAt              *time.Time `bson:"cycle_started_at,omitempty"`
	PregnancyDays               *int       `bson:"pregnancy_days,omitempty"`
	ExpectedCalvingDate         *time.Time `bson:"expected_calving_date,omitempty"`
	ScheduledPregnancyCheckDate *time.Time `bson:"scheduled_pregnancy_check_date,omitempty"`
	ConfirmedAt                 *time.Time `bson:"confirmed_at,omitempty"`
	IsDifficultBirth            *bool      `bson:"is_difficult_birth,omitempty"`
	CalvedAt                    *time.Time `bson:"calved_at,omitempty"`
}

type summaryDocument struct {
	TotalInseminationCount int       `bson:"total_insemination_count"`
	PregnancyHeadCount     int       `bson:"pregnancy_head_count"`
	DifficultBirthCount    int       `bson:"difficult_birth_count"`
	PregnancySuccessRate   *int      `bson:"pregnancy_success_rate"`
	AveragePregnancyPeriod *int      `bson:"average_pregnancy_period"`
	AverageCalvingInterval *int      `bson:"average_calving_interval"`
	AverageDaysOpen        *int      `bson:"average_days_open"`
	LastUpdated            time.Time `bson:"last_updated"`
}

type eventDocument struct {
	CattleID                    int64      `bson:"cattle_id"`
	OwnerID                     int64      `bson:"owner_id"`
	Seq                         int        `bson:"seq"`
	Type                        string     `bson:"type"`
	Timestamp                   time.Time  `bson:"timestamp"`
	Memo                        string     `bson:"memo,omitempty"`
	ExpectedCalvingDate         *time.Time `bson:"expected_calving_date,omitempty"`
	ScheduledPregnancyCheckDate *time.Time `bson:"scheduled_pregnancy_check_date,omitempty"`
	IsDifficultBirth            bool       `bson:"is_difficult_birth"`
}

func toAggregateDocument(a breeding.Aggregate) aggregateDocument {
	return aggregateDocument{
		CattleID:      a.CattleID(),
		OwnerID:       a.OwnerID(),
		Status:        toStatusDocument(a.Status()),
		Summary:       toSummaryDocument(a.Summary()),
		Version:       a.Version(),
		HistoryLength: a.HistoryLen(),
		LastUpdated:   a.LastUpdated(),
	}
}

func (d aggregateDocument) toAggregate(history []models.BreedingEvent) breeding.Aggregate {
	return breeding.Rehydrate(breeding.Snapshot{
		CattleID:    d.CattleID,
		OwnerID:     d.OwnerID,
		Status:      d.Status.toStatus(),
		Summary:     d.Summary.toSummary(),
		History:     history,
		Version:     d.Version,
		LastUpdated: d.LastUpdated,
	})
}

func toStatusDocument(status models.BreedingStatus) statusDocument {
	doc := statusDocument{Phase: string(status.Phase()), Parity: status.CurrentParity(), Memo: status.Note()}
	switch s := status.(type) {
	case models.NotBreeding:
		doc.DaysAfterCalving = s.DaysAfterCalving
		doc.LastCalvedAt = s.LastCalvedAt
	case models.Inseminated:
		doc.DaysAfterInsemination = &s.DaysAfterInsemination
		doc.InseminationCount = &s.InseminationCount
		doc.DaysOpen = s.DaysOpen
		doc.InseminatedAt = &s.InseminatedAt
		doc.CycleStartedAt = &s.CycleStartedAt
	case models.Pregnant:
		doc.PregnancyDays = &s.PregnancyDays
		doc.ExpectedCalvingDate = &s.ExpectedCalvingDate
		doc.ScheduledPregnancyCheckDate = s.ScheduledPregnancyCheckDate
		doc.ConfirmedAt = &s.ConfirmedAt
	case models.PostCalving:
		doc.DaysAfterCalving = &s.DaysAfterCalving
		doc.IsDifficultBirth = &s.IsDifficultBirth
		doc.CalvedAt = &s.CalvedAt
	}
	return doc
}

// toStatus decodes the stored status. An unknown phase decodes to the
// initial status; IsValid audits will flag it against the history.
func (d statusDocument) toStatus() models.BreedingStatus {
	switch models.Phase(d.Phase) {
	case models.PhaseInseminated:
		return models.Inseminated{
			Parity:                d.Parity,
			DaysAfterInsemination: derefInt(d.DaysAfterInsemination),
			InseminationCount:     derefInt(d.InseminationCount),
			DaysOpen:              d.DaysOpen,
			InseminatedAt:         derefTime(d.InseminatedAt),
			CycleStartedAt:        derefTime(d.CycleStartedAt),
			Memo:                  d.Memo,
		}
	case models.PhasePregnant:
		return models.Pregnant{
			Parity:                      d.Parity,
			PregnancyDays:               derefInt(d.PregnancyDays),
			ExpectedCalvingDate:         derefTime(d.ExpectedCalvingDate),
			ScheduledPregnancyCheckDate: d.ScheduledPregnancyCheckDate,
			ConfirmedAt:                 derefTime(d.ConfirmedAt),
			Memo:                        d.Memo,
		}
	case models.PhasePostCalving:
		return models.PostCalving{
			Parity:           d.Parity,
			DaysAfterCalving: derefInt(d.DaysAfterCalving),
			IsDifficultBirth: d.IsDifficultBirth != nil && *d.IsDifficultBirth,
			CalvedAt:         derefTime(d.CalvedAt),
			Memo:             d.Memo,
		}
	default:
		return models.NotBreeding{
			Parity:           d.Parity,
			DaysAfterCalving: d.DaysAfterCalving,
			LastCalvedAt:     d.LastCalvedAt,
			Memo:             d.Memo,
		}
	}
}

func toSummaryDocument(s models.BreedingSummary) summaryDocument {
	return summaryDocument{
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

func (d summaryDocument) toSummary() models.BreedingSummary {
	return models.BreedingSummary{
		TotalInseminationCount: d.TotalInseminationCount,
		PregnancyHeadCount:     d.PregnancyHeadCount,
		DifficultBirthCount:    d.DifficultBirthCount,
		PregnancySuccessRate:   d.PregnancySuccessRate,
		AveragePregnancyPeriod: d.AveragePregnancyPeriod,
		AverageCalvingInterval: d.AverageCalvingInterval,
		AverageDaysOpen:        d.AverageDaysOpen,
		LastUpdated:            d.LastUpdated,
	}
}

func toEventDocument(cattleID, ownerID int64, seq int, event models.BreedingEvent) eventDocument {
	doc := eventDocument{
		CattleID:  cattleID,
		OwnerID:   ownerID,
		Seq:       seq,
		Type:      string(event.Type()),
		Timestamp: event.OccurredAt(),
		Memo:      event.Note(),
	}
	switch e := event.(type) {
	case models.ConfirmPregnancy:
		doc.ExpectedCalvingDate = &e.ExpectedCalvingDate
		doc.ScheduledPregnancyCheckDate = e.ScheduledPregnancyCheckDate
	case models.Calve:
		doc.IsDifficultBirth = e.IsDifficultBirth
	}
	return doc
}

// toEvent never fails: rows with an unknown type, or a pregnancy confirmation
// missing its expected date, come back as models.UnrecognizedEvent.
func (d eventDocument) toEvent() models.BreedingEvent {
	ts := d.Timestamp.UTC()
	switch models.EventType(d.Type) {
	case models.EventInseminate:
		return models.Inseminate{Timestamp: ts, Memo: d.Memo}
	case models.EventConfirmPregnancy:
		if d.ExpectedCalvingDate == nil {
			return models.UnrecognizedEvent{Kind: d.Type, Timestamp: ts, Memo: d.Memo}
		}
		return models.ConfirmPregnancy{
			Timestamp:                   ts,
			ExpectedCalvingDate:         d.ExpectedCalvingDate.UTC(),
			ScheduledPregnancyCheckDate: utcPtr(d.ScheduledPregnancyCheckDate),
			Memo:                        d.Memo,
		}
	case models.EventCalve:
		return models.Calve{Timestamp: ts, IsDifficultBirth: d.IsDifficultBirth, Memo: d.Memo}
	case models.EventStartNewCycle:
		return models.StartNewCycle{Timestamp: ts, Memo: d.Memo}
	default:
		return models.UnrecognizedEvent{Kind: d.Type, Timestamp: ts, Memo: d.Memo}
	}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefTime(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return v.UTC()
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}
