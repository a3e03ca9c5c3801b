package models

import "time"

// EventType enumerates the reproductive events recorded for an animal.
type EventType string

const (
	EventInseminate       EventType = "inseminate"
	EventConfirmPregnancy EventType = "confirm_pregnancy"
	EventCalve            EventType = "calve"
	EventStartNewCycle    EventType = "start_new_cycle"
)

// BreedingEvent is one immutable entry of an animal's breeding log. The
// concrete value is one of Inseminate, ConfirmPregnancy, Calve, StartNewCycle
// or UnrecognizedEvent.
type BreedingEvent interface {
	Type() EventType
	OccurredAt() time.Time
	Note() string
	isBreedingEvent()
}

// Inseminate records an insemination.
type Inseminate struct {
	Timestamp time.Time
	Memo      string
}

// ConfirmPregnancy records a positive pregnancy diagnosis.
type ConfirmPregnancy struct {
	Timestamp                   time.Time
	ExpectedCalvingDate         time.Time
	ScheduledPregnancyCheckDate *time.Time
	Memo                        string
}

// Calve records a birth.
type Calve struct {
	Timestamp        time.Time
	IsDifficultBirth bool
	Memo             string
}

// StartNewCycle abandons the current cycle (failed pregnancy, skipped cycle).
type StartNewCycle struct {
	Timestamp time.Time
	Memo      string
}

// UnrecognizedEvent stands in for a stored row whose type is unknown. It is
// produced by storage decoders only; the state machine rejects it.
type UnrecognizedEvent struct {
	Kind      string
	Timestamp time.Time
	Memo      string
}

func (e Inseminate) Type() EventType       { return EventInseminate }
func (e Inseminate) OccurredAt() time.Time { return e.Timestamp }
func (e Inseminate) Note() string          { return e.Memo }
func (Inseminate) isBreedingEvent()        {}

func (e ConfirmPregnancy) Type() EventType       { return EventConfirmPregnancy }
func (e ConfirmPregnancy) OccurredAt() time.Time { return e.Timestamp }
func (e ConfirmPregnancy) Note() string          { return e.Memo }
func (ConfirmPregnancy) isBreedingEvent()        {}

func (e Calve) Type() EventType       { return EventCalve }
func (e Calve) OccurredAt() time.Time { return e.Timestamp }
func (e Calve) Note() string          { return e.Memo }
func (Calve) isBreedingEvent()        {}

func (e StartNewCycle) Type() EventType       { return EventStartNewCycle }
func (e StartNewCycle) OccurredAt() time.Time { return e.Timestamp }
func (e StartNewCycle) Note() string          { return e.Memo }
func (StartNewCycle) isBreedingEvent()        {}

func (e UnrecognizedEvent) Type() EventType       { return EventType(e.Kind) }
func (e UnrecognizedEvent) OccurredAt() time.Time { return e.Timestamp }
func (e UnrecognizedEvent) Note() string          { return e.Memo }
func (UnrecognizedEvent) isBreedingEvent()        {}

// IsKnown reports whether t is one of the four recorded event kinds.
func (t EventType) IsKnown() bool {
	switch t {
	case EventInseminate, EventConfirmPregnancy, EventCalve, EventStartNewCycle:
		return true
	default:
		return false
	}
}

// Label returns the human readable name used in error messages.
func (t EventType) Label() string {
	switch t {
	case EventInseminate:
		return "Inseminate"
	case EventConfirmPregnancy:
		return "ConfirmPregnancy"
	case EventCalve:
		return "Calve"
	case EventStartNewCycle:
		return "StartNewCycle"
	default:
		return string(t)
	}
}
