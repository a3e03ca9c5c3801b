package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/service/calculation"
)

// RequesterHeader carries the id of the authenticated user, set by the
// gateway in front of this service.
const RequesterHeader = "X-User-ID"

const (
	dateLayout              = "2006-01-02"
	defaultStatisticsWindow = 30 * 24 * time.Hour
)

// BreedingService is the lifecycle use-case surface.
type BreedingService interface {
	Initialize(ctx context.Context, cmd models.InitializeCommand) (breeding.Aggregate, error)
	RecordEvent(ctx context.Context, cmd models.RecordEventCommand) (breeding.Aggregate, error)
	GetStatus(ctx context.Context, q models.StatusQuery) (*breeding.Aggregate, error)
	GetCattleNeedingAttention(ctx context.Context, ownerID int64) ([]int64, error)
	GetHerdStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error)
}

// DetailsCalculator computes up-to-date figures for one animal.
type DetailsCalculator interface {
	CalculateDetails(ctx context.Context, cattleID int64, opts calculation.Options) (calculation.Result, error)
}

// BatchRunner refreshes a page of aggregates.
type BatchRunner interface {
	RunBatch(ctx context.Context, opts models.BatchOptions) models.BatchResult
}

// BreedingHandler exposes the breeding use-cases over HTTP.
type BreedingHandler struct {
	svc    BreedingService
	calc   DetailsCalculator
	batch  BatchRunner
	logger *zap.Logger
	now    func() time.Time
}

// NewBreedingHandler constructs the HTTP handler adapter.
func NewBreedingHandler(svc BreedingService, calc DetailsCalculator, batch BatchRunner, logger *zap.Logger) *BreedingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreedingHandler{svc: svc, calc: calc, batch: batch, logger: logger, now: time.Now}
}

// Initialize creates the breeding record of an animal.
func (h *BreedingHandler) Initialize(c *gin.Context) {
	requester, cattleID, ok := h.identity(c)
	if !ok {
		return
	}

	aggregate, err := h.svc.Initialize(c.Request.Context(), models.InitializeCommand{RequesterUserID: requester, CattleID: cattleID})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAggregateView(aggregate, h.now(), false))
}

// RecordEvent appends a breeding event.
func (h *BreedingHandler) RecordEvent(c *gin.Context) {
	requester, cattleID, ok := h.identity(c)
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid breeding event payload", zap.Error(err))
		h.writeError(c, models.NewValidationError("body", "invalid breeding event payload"))
		return
	}

	aggregate, err := h.svc.RecordEvent(c.Request.Context(), models.RecordEventCommand{
		RequesterUserID: requester,
		CattleID:        cattleID,
		Event:           req.toEvent(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAggregateView(aggregate, h.now(), false))
}

// GetStatus returns the stored record with counters re-derived for today.
func (h *BreedingHandler) GetStatus(c *gin.Context) {
	requester, cattleID, ok := h.identity(c)
	if !ok {
		return
	}

	aggregate, err := h.svc.GetStatus(c.Request.Context(), models.StatusQuery{RequesterUserID: requester, CattleID: cattleID})
	if err != nil {
		h.writeError(c, err)
		return
	}
	if aggregate == nil {
		h.writeError(c, models.NewNotFoundError("breeding record for cattle", cattleID))
		return
	}
	c.JSON(http.StatusOK, newAggregateView(*aggregate, h.now(), true))
}

// GetDetails recomputes status and summary from the event log, using the
// daily cache unless force=true.
func (h *BreedingHandler) GetDetails(c *gin.Context) {
	_, cattleID, ok := h.identity(c)
	if !ok {
		return
	}

	force, _ := strconv.ParseBool(c.Query("force"))
	result, err := h.calc.CalculateDetails(c.Request.Context(), cattleID, calculation.Options{ForceRecalculation: force})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDetailsView(result))
}

// ListAttention returns the requester's animals overdue for a breeding action.
func (h *BreedingHandler) ListAttention(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	ids, err := h.svc.GetCattleNeedingAttention(c.Request.Context(), requester)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cattle_ids": ids, "count": len(ids)})
}

// GetStatistics returns herd statistics for [start, end]. Both default to the
// last 30 days; a date-only end covers the whole day.
func (h *BreedingHandler) GetStatistics(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	end := h.now()
	if raw := c.Query("end"); raw != "" {
		parsed, dateOnly, err := parseTimeParam(raw)
		if err != nil {
			h.writeError(c, models.NewValidationError("end", "expected yyyy-mm-dd or RFC3339 time"))
			return
		}
		end = parsed
		if dateOnly {
			end = parsed.Add(24*time.Hour - time.Nanosecond)
		}
	}
	start := end.Add(-defaultStatisticsWindow)
	if raw := c.Query("start"); raw != "" {
		parsed, _, err := parseTimeParam(raw)
		if err != nil {
			h.writeError(c, models.NewValidationError("start", "expected yyyy-mm-dd or RFC3339 time"))
			return
		}
		start = parsed
	}

	stats, err := h.svc.GetHerdStatistics(c.Request.Context(), requester, start, end)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStatisticsView(stats))
}

// Recalculate runs one page of the batch sweep.
func (h *BreedingHandler) Recalculate(c *gin.Context) {
	if _, ok := h.requester(c); !ok {
		return
	}

	var req batchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, models.NewValidationError("body", "invalid batch options"))
			return
		}
	}

	result := h.batch.RunBatch(c.Request.Context(), models.BatchOptions{Limit: req.Limit, Offset: req.Offset, Force: req.Force})
	c.JSON(http.StatusOK, result)
}

func (h *BreedingHandler) requester(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(RequesterHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || id <= 0 {
		h.writeError(c, models.NewValidationError("requester_user_id", "%s header must carry a positive user id", RequesterHeader))
		return 0, false
	}
	return id, true
}

func (h *BreedingHandler) identity(c *gin.Context) (int64, int64, bool) {
	requester, ok := h.requester(c)
	if !ok {
		return 0, 0, false
	}
	cattleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cattleID <= 0 {
		h.writeError(c, models.NewValidationError("cattle_id", "cattle id must be a positive integer"))
		return 0, 0, false
	}
	return requester, cattleID, true
}

func (h *BreedingHandler) writeError(c *gin.Context, err error) {
	kind := models.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindConflict:
		status = http.StatusConflict
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindInfra:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("breeding request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": models.UserMessage(err), "kind": kind})
}

func parseTimeParam(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}
