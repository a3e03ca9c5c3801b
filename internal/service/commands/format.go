package commands

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

// DescribeStatus renders a status as one or two short lines for chat replies.
func DescribeStatus(status models.BreedingStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s (parity %d)", status.Phase().Label(), status.CurrentParity())

	switch s := status.(type) {
	case models.NotBreeding:
		if s.DaysAfterCalving != nil {
			fmt.Fprintf(&b, "\n%d days since last calving", *s.DaysAfterCalving)
		}
	case models.Inseminated:
		fmt.Fprintf(&b, "\n%d days since insemination, attempt %d", s.DaysAfterInsemination, s.InseminationCount)
		if s.DaysOpen != nil {
			fmt.Fprintf(&b, ", %d days open", *s.DaysOpen)
		}
	case models.Pregnant:
		fmt.Fprintf(&b, "\n%d days pregnant, calving expected %s", s.PregnancyDays, s.ExpectedCalvingDate.Format(dateFormat))
	case models.PostCalving:
		fmt.Fprintf(&b, "\n%d days since calving", s.DaysAfterCalving)
		if s.IsDifficultBirth {
			b.WriteString(" (difficult birth)")
		}
	}
	return b.String()
}

// DescribeSummary renders the rolling statistics of one animal.
func DescribeSummary(summary models.BreedingSummary) string {
	return fmt.Sprintf("Inseminations %d, pregnancies %d, difficult births %d\nSuccess rate %s, gestation %s, calving interval %s, days open %s",
		summary.TotalInseminationCount,
		summary.PregnancyHeadCount,
		summary.DifficultBirthCount,
		optional(summary.PregnancySuccessRate, "%"),
		optional(summary.AveragePregnancyPeriod, "d"),
		optional(summary.AverageCalvingInterval, "d"),
		optional(summary.AverageDaysOpen, "d"))
}

func optional(v *int, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%s", *v, unit)
}
