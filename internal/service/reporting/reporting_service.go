package reporting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/models"
)

const dateLayout = "2006-01-02"

// HerdSource provides the figures a weekly report is built from.
type HerdSource interface {
	GetHerdStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error)
	GetCattleNeedingAttention(ctx context.Context, ownerID int64) ([]int64, error)
}

// SheetExporter appends a report row unless its week is already exported.
type SheetExporter interface {
	ExportBreedingReport(ctx context.Context, report models.BreedingReport) (bool, error)
}

// ReportStore keeps report snapshots.
type ReportStore interface {
	SaveBreedingReport(ctx context.Context, report models.BreedingReport) error
}

// Service builds the weekly herd breeding report. Sheets export and snapshot
// storage are optional.
type Service struct {
	source  HerdSource
	sheets  SheetExporter
	store   ReportStore
	ownerID int64
	loc     *time.Location
	logger  *zap.Logger
}

// NewService wires a new reporting service instance. sheets and store may be nil.
func NewService(source HerdSource, sheets SheetExporter, store ReportStore, ownerID int64, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source:  source,
		sheets:  sheets,
		store:   store,
		ownerID: ownerID,
		loc:     loc,
		logger:  logger,
	}
}

// BuildWeeklyReport collects statistics from Monday 00:00 of now's week up to now.
func (s *Service) BuildWeeklyReport(ctx context.Context, now time.Time) (models.BreedingReport, error) {
	local := now.In(s.loc)
	start := mondayStart(local)

	stats, err := s.source.GetHerdStatistics(ctx, s.ownerID, start, local)
	if err != nil {
		return models.BreedingReport{}, fmt.Errorf("load herd statistics: %w", err)
	}
	attention, err := s.source.GetCattleNeedingAttention(ctx, s.ownerID)
	if err != nil {
		return models.BreedingReport{}, fmt.Errorf("load attention list: %w", err)
	}

	return models.BreedingReport{
		OwnerID:             s.ownerID,
		PeriodStart:         start,
		PeriodEnd:           local,
		Inseminations:       stats.TotalInseminations,
		Pregnancies:         stats.TotalPregnancies,
		Calvings:            stats.TotalCalvings,
		PregnancyRate:       stats.AveragePregnancyRate,
		DifficultBirthRate:  stats.DifficultBirthRate,
		CattleNeedingAction: attention,
		CreatedAt:           now.UTC(),
	}, nil
}

// GenerateWeeklyReport builds the report, exports and stores it, and returns
// the chat text. Export and storage failures are logged, not returned.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	report, err := s.BuildWeeklyReport(ctx, now)
	if err != nil {
		return "", err
	}

	if s.sheets != nil {
		if _, err := s.sheets.ExportBreedingReport(ctx, report); err != nil {
			s.logger.Error("failed to export breeding report", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.SaveBreedingReport(ctx, report); err != nil {
			s.logger.Error("failed to store breeding report", zap.Error(err))
		}
	}

	return FormatReport(report), nil
}

// FormatReport renders the WhatsApp text of a report.
func FormatReport(report models.BreedingReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Breeding report %s to %s\n", report.PeriodStart.Format(dateLayout), report.PeriodEnd.Format(dateLayout))
	fmt.Fprintf(&b, "Inseminations: %d\nPregnancies confirmed: %d\nCalvings: %d\n", report.Inseminations, report.Pregnancies, report.Calvings)
	fmt.Fprintf(&b, "Pregnancy rate: %s\nDifficult births: %s\n", rateText(report.PregnancyRate), rateText(report.DifficultBirthRate))

	if len(report.CattleNeedingAction) == 0 {
		b.WriteString("No animal needs a breeding action.")
	} else {
		fmt.Fprintf(&b, "Needing action (%d): %s", len(report.CattleNeedingAction), joinIDs(report.CattleNeedingAction))
	}
	return b.String()
}

func rateText(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *rate)
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, "#"+strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

func mondayStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	daysSinceMonday := (weekday + 6) % 7
	start := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, t.Location())
}
