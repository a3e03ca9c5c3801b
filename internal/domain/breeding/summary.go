package breeding

import (
	"math"
	"sort"
	"time"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// Summarize folds the entire history into a fresh BreedingSummary. The input
// slice is not modified; it is ordered by timestamp on a copy. Events of an
// unrecognized type are ignored.
func Summarize(history []models.BreedingEvent, asOf time.Time) models.BreedingSummary {
	events := SortedByTime(history)

	var (
		inseminations []time.Time
		calvings      []time.Time
		pregnancies   int
		difficult     int
	)
	for _, event := range events {
		switch e := event.(type) {
		case models.Inseminate:
			inseminations = append(inseminations, e.Timestamp)
		case models.ConfirmPregnancy:
			pregnancies++
		case models.Calve:
			calvings = append(calvings, e.Timestamp)
			if e.IsDifficultBirth {
				difficult++
			}
		}
	}

	summary := models.BreedingSummary{
		TotalInseminationCount: len(inseminations),
		PregnancyHeadCount:     pregnancies,
		DifficultBirthCount:    difficult,
		AveragePregnancyPeriod: averagePregnancyPeriod(inseminations, calvings),
		AverageCalvingInterval: averageCalvingInterval(calvings),
		AverageDaysOpen:        averageDaysOpen(inseminations, calvings),
		LastUpdated:            asOf,
	}
	if len(inseminations) > 0 {
		rate := roundHalfUp(100 * float64(pregnancies) / float64(len(inseminations)))
		summary.PregnancySuccessRate = &rate
	}

	return summary
}

// SortedByTime returns a copy of events ordered by timestamp. Events sharing
// a timestamp keep their relative order.
func SortedByTime(events []models.BreedingEvent) []models.BreedingEvent {
	out := make([]models.BreedingEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt().Before(out[j].OccurredAt())
	})
	return out
}

// averagePregnancyPeriod pairs every calving with the latest insemination at
// or before it.
func averagePregnancyPeriod(inseminations, calvings []time.Time) *int {
	var gaps []int
	for _, calvedAt := range calvings {
		idx := sort.Search(len(inseminations), func(i int) bool {
			return inseminations[i].After(calvedAt)
		}) - 1
		if idx < 0 {
			continue
		}
		gaps = append(gaps, models.DaysBetween(inseminations[idx], calvedAt))
	}
	return averageDays(gaps)
}

func averageCalvingInterval(calvings []time.Time) *int {
	if len(calvings) < 2 {
		return nil
	}
	gaps := make([]int, 0, len(calvings)-1)
	for i := 1; i < len(calvings); i++ {
		gaps = append(gaps, models.DaysBetween(calvings[i-1], calvings[i]))
	}
	return averageDays(gaps)
}

// averageDaysOpen measures, for each pair of consecutive calvings, the gap
// from the earlier calving to the first insemination strictly between them.
func averageDaysOpen(inseminations, calvings []time.Time) *int {
	var gaps []int
	for i := 1; i < len(calvings); i++ {
		prev, next := calvings[i-1], calvings[i]
		for _, inseminatedAt := range inseminations {
			if inseminatedAt.After(prev) && inseminatedAt.Before(next) {
				gaps = append(gaps, models.DaysBetween(prev, inseminatedAt))
				break
			}
		}
	}
	return averageDays(gaps)
}

func averageDays(values []int) *int {
	if len(values) == 0 {
		return nil
	}
	total := 0
	for _, v := range values {
		total += v
	}
	avg := roundHalfUp(float64(total) / float64(len(values)))
	return &avg
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// NewHerdStatistics derives herd-level rates from raw event counts. Rates are
// percentages rounded to two decimals and nil when their denominator is zero.
func NewHerdStatistics(ownerID int64, start, end time.Time, inseminations, pregnancies, calvings, difficultBirths int) models.HerdStatistics {
	stats := models.HerdStatistics{
		OwnerID:            ownerID,
		Start:              start,
		End:                end,
		TotalInseminations: inseminations,
		TotalPregnancies:   pregnancies,
		TotalCalvings:      calvings,
	}
	if inseminations > 0 {
		rate := percentage(pregnancies, inseminations)
		stats.AveragePregnancyRate = &rate
	}
	if calvings > 0 {
		rate := percentage(difficultBirths, calvings)
		stats.DifficultBirthRate = &rate
	}
	return stats
}

func percentage(part, whole int) float64 {
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
