package models

import "time"

// Phase identifies which breeding status variant is active.
type Phase string

const (
	PhaseNotBreeding Phase = "not_breeding"
	PhaseInseminated Phase = "inseminated"
	PhasePregnant    Phase = "pregnant"
	PhasePostCalving Phase = "post_calving"
)

// Label returns the human readable name used in error messages.
func (p Phase) Label() string {
	switch p {
	case PhaseNotBreeding:
		return "NotBreeding"
	case PhaseInseminated:
		return "Inseminated"
	case PhasePregnant:
		return "Pregnant"
	case PhasePostCalving:
		return "PostCalving"
	default:
		return string(p)
	}
}

// BreedingStatus is the current breeding phase of one animal. The concrete
// value is one of NotBreeding, Inseminated, Pregnant or PostCalving.
//
// Day counters are computed for a reference date; every variant also keeps the
// timestamp its counters derive from so AsOf can re-derive them.
type BreedingStatus interface {
	Phase() Phase
	CurrentParity() int
	Note() string
	AsOf(ref time.Time) BreedingStatus
	isBreedingStatus()
}

// NotBreeding is the resting phase between cycles.
type NotBreeding struct {
	Parity           int
	DaysAfterCalving *int
	LastCalvedAt     *time.Time
	Memo             string
}

// Inseminated means bred and awaiting confirmation.
type Inseminated struct {
	Parity                int
	DaysAfterInsemination int
	InseminationCount     int
	DaysOpen              *int
	InseminatedAt         time.Time
	CycleStartedAt        time.Time
	Memo                  string
}

// Pregnant means a pregnancy has been confirmed.
type Pregnant struct {
	Parity                      int
	PregnancyDays               int
	ExpectedCalvingDate         time.Time
	ScheduledPregnancyCheckDate *time.Time
	ConfirmedAt                 time.Time
	Memo                        string
}

// PostCalving is the recovery phase after a birth.
type PostCalving struct {
	Parity           int
	DaysAfterCalving int
	IsDifficultBirth bool
	CalvedAt         time.Time
	Memo             string
}

// InitialStatus is the phase of an animal with no breeding history.
func InitialStatus() BreedingStatus {
	return NotBreeding{}
}

func (s NotBreeding) Phase() Phase       { return PhaseNotBreeding }
func (s NotBreeding) CurrentParity() int { return s.Parity }
func (s NotBreeding) Note() string       { return s.Memo }
func (NotBreeding) isBreedingStatus()    {}

func (s NotBreeding) AsOf(ref time.Time) BreedingStatus {
	if s.LastCalvedAt != nil {
		days := DaysBetween(*s.LastCalvedAt, ref)
		s.DaysAfterCalving = &days
	}
	return s
}

func (s Inseminated) Phase() Phase       { return PhaseInseminated }
func (s Inseminated) CurrentParity() int { return s.Parity }
func (s Inseminated) Note() string       { return s.Memo }
func (Inseminated) isBreedingStatus()    {}

func (s Inseminated) AsOf(ref time.Time) BreedingStatus {
	s.DaysAfterInsemination = DaysBetween(s.InseminatedAt, ref)
	return s
}

func (s Pregnant) Phase() Phase       { return PhasePregnant }
func (s Pregnant) CurrentParity() int { return s.Parity }
func (s Pregnant) Note() string       { return s.Memo }
func (Pregnant) isBreedingStatus()    {}

func (s Pregnant) AsOf(ref time.Time) BreedingStatus {
	s.PregnancyDays = DaysBetween(s.ConfirmedAt, ref)
	return s
}

func (s PostCalving) Phase() Phase       { return PhasePostCalving }
func (s PostCalving) CurrentParity() int { return s.Parity }
func (s PostCalving) Note() string       { return s.Memo }
func (PostCalving) isBreedingStatus()    {}

func (s PostCalving) AsOf(ref time.Time) BreedingStatus {
	s.DaysAfterCalving = DaysBetween(s.CalvedAt, ref)
	return s
}

const day = 24 * time.Hour

// DaysBetween returns floor((to - from) / 1 day). The result is negative when
// to precedes from.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}
