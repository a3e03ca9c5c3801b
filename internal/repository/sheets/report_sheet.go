package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/herdbook/internal/config"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

const (
	// DefaultRange holds one row per reported week, keyed by the week start in column A.
	DefaultRange = "Breeding!A:I"
	dateLayout   = "2006-01-02"
)

// ReportSheet exports weekly breeding reports to a Google spreadsheet.
type ReportSheet struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetRange    string
	logger        *zap.Logger
}

// NewReportSheet authenticates with a service-account file and targets the
// configured spreadsheet.
func NewReportSheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*ReportSheet, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sheets export requires credentials path and spreadsheet id")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return newReportSheet(service, cfg.SpreadsheetID, DefaultRange, logger), nil
}

func newReportSheet(service *sheetsapi.Service, spreadsheetID, sheetRange string, logger *zap.Logger) *ReportSheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportSheet{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
		logger:        logger,
	}
}

// ExportBreedingReport appends the report as one row. It reports false when
// the sheet already holds a row for the same week.
func (r *ReportSheet) ExportBreedingReport(ctx context.Context, report models.BreedingReport) (bool, error) {
	weekStart := report.PeriodStart.Format(dateLayout)

	exported, err := r.hasWeek(ctx, weekStart)
	if err != nil {
		return false, err
	}
	if exported {
		r.logger.Debug("breeding report row already exported", zap.String("week", weekStart))
		return false, nil
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{ReportRow(report)}}
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, r.sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return false, fmt.Errorf("append report row into %s: %w", r.sheetRange, err)
	}

	r.logger.Info("breeding report exported", zap.String("week", weekStart))
	return true, nil
}

func (r *ReportSheet) hasWeek(ctx context.Context, weekStart string) (bool, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, r.sheetRange).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read range %s: %w", r.sheetRange, err)
	}

	for _, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == weekStart {
			return true, nil
		}
	}
	return false, nil
}

// ReportRow lays a report out as: week start, week end, inseminations,
// pregnancies, calvings, pregnancy rate, difficult birth rate, attention
// count, attention ids.
func ReportRow(report models.BreedingReport) []interface{} {
	ids := make([]string, 0, len(report.CattleNeedingAction))
	for _, id := range report.CattleNeedingAction {
		ids = append(ids, "#"+strconv.FormatInt(id, 10))
	}

	return []interface{}{
		report.PeriodStart.Format(dateLayout),
		report.PeriodEnd.Format(dateLayout),
		report.Inseminations,
		report.Pregnancies,
		report.Calvings,
		rateCell(report.PregnancyRate),
		rateCell(report.DifficultBirthRate),
		len(report.CattleNeedingAction),
		strings.Join(ids, ", "),
	}
}

func rateCell(rate *float64) interface{} {
	if rate == nil {
		return ""
	}
	return *rate
}
