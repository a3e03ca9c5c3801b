package models

import "time"

// BreedingSummary holds rolling statistics derived from the full event log.
// It is always recomputed wholesale, never incremented.
type BreedingSummary struct {
	TotalInseminationCount int
	PregnancyHeadCount     int
	DifficultBirthCount    int
	PregnancySuccessRate   *int
	AveragePregnancyPeriod *int
	AverageCalvingInterval *int
	AverageDaysOpen        *int
	LastUpdated            time.Time
}

// HerdStatistics aggregates breeding outcomes across an owner's herd for a
// time window.
type HerdStatistics struct {
	OwnerID              int64
	Start                time.Time
	End                  time.Time
	TotalInseminations   int
	TotalPregnancies     int
	TotalCalvings        int
	AveragePregnancyRate *float64
	DifficultBirthRate   *float64
}

// CycleSummary describes where an animal is in its current breeding cycle.
type CycleSummary struct {
	Phase          Phase
	CycleStartDate *time.Time
	DaysInCycle    *int
	NextAction     string
	NextActionDue  *time.Time
}
