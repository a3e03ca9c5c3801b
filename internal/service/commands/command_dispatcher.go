package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
	"github.com/mamadbah2/herdbook/internal/service/calculation"
)

const dateFormat = "2006-01-02"

const helpText = "Supported commands:\n" +
	"/inseminate <cattle-id> [memo]\n" +
	"/confirm <cattle-id> <expected-calving yyyy-mm-dd> [check yyyy-mm-dd] [memo]\n" +
	"/calve <cattle-id> [difficult] [memo]\n" +
	"/newcycle <cattle-id> [memo]\n" +
	"/status <cattle-id>\n" +
	"/attention"

// BreedingUseCases is the part of the lifecycle service the dispatcher drives.
type BreedingUseCases interface {
	RecordEvent(ctx context.Context, cmd models.RecordEventCommand) (breeding.Aggregate, error)
	GetCattleNeedingAttention(ctx context.Context, ownerID int64) ([]int64, error)
}

// DetailsCalculator returns up-to-date figures for one animal.
type DetailsCalculator interface {
	CalculateDetails(ctx context.Context, cattleID int64, opts calculation.Options) (calculation.Result, error)
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements Dispatcher on top of the breeding services. Every
// WhatsApp sender acts on behalf of the configured owner.
type Service struct {
	breeding   BreedingUseCases
	calculator DetailsCalculator
	ownerID    int64
	logger     *zap.Logger
	now        func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(useCases BreedingUseCases, calculator DetailsCalculator, ownerID int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		breeding:   useCases,
		calculator: calculator,
		ownerID:    ownerID,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleCommand runs cmd. Errors are domain errors; callers turn them into
// replies with models.UserMessage.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandInseminate, models.CommandConfirm, models.CommandCalve, models.CommandNewCycle:
		cattleID, event, err := s.buildEvent(cmd, s.now())
		if err != nil {
			return "", err
		}
		aggregate, err := s.breeding.RecordEvent(ctx, models.RecordEventCommand{
			RequesterUserID: s.ownerID,
			CattleID:        cattleID,
			Event:           event,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s recorded for cattle #%d.\n%s", event.Type().Label(), cattleID, DescribeStatus(aggregate.Status())), nil
	case models.CommandStatus:
		cattleID, err := cattleIDArg(cmd)
		if err != nil {
			return "", err
		}
		result, err := s.calculator.CalculateDetails(ctx, cattleID, calculation.Options{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Cattle #%d\n%s\n%s", cattleID, DescribeStatus(result.Status), DescribeSummary(result.Summary)), nil
	case models.CommandAttention:
		ids, err := s.breeding.GetCattleNeedingAttention(ctx, s.ownerID)
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "No animal needs a breeding action today.", nil
		}
		return fmt.Sprintf("%d animal(s) need a breeding action: %s", len(ids), joinIDs(ids)), nil
	default:
		return helpText, nil
	}
}

func (s *Service) buildEvent(cmd models.Command, now time.Time) (int64, models.BreedingEvent, error) {
	cattleID, err := cattleIDArg(cmd)
	if err != nil {
		return 0, nil, err
	}
	rest := cmd.Args[1:]

	switch cmd.Type {
	case models.CommandInseminate:
		return cattleID, models.Inseminate{Timestamp: now, Memo: strings.Join(rest, " ")}, nil
	case models.CommandConfirm:
		event, err := buildConfirmation(rest, now)
		return cattleID, event, err
	case models.CommandCalve:
		difficult := len(rest) > 0 && strings.EqualFold(rest[0], "difficult")
		if difficult {
			rest = rest[1:]
		}
		return cattleID, models.Calve{Timestamp: now, IsDifficultBirth: difficult, Memo: strings.Join(rest, " ")}, nil
	default:
		return cattleID, models.StartNewCycle{Timestamp: now, Memo: strings.Join(rest, " ")}, nil
	}
}

func buildConfirmation(args []string, now time.Time) (models.BreedingEvent, error) {
	if len(args) == 0 {
		return nil, models.NewValidationError("expected_calving_date", "usage: /confirm <cattle-id> <expected-calving yyyy-mm-dd> [check yyyy-mm-dd] [memo]")
	}
	expected, err := time.Parse(dateFormat, args[0])
	if err != nil {
		return nil, models.NewValidationError("expected_calving_date", "%q is not a yyyy-mm-dd date", args[0])
	}

	event := models.ConfirmPregnancy{Timestamp: now, ExpectedCalvingDate: expected}
	rest := args[1:]
	if len(rest) > 0 {
		if check, err := time.Parse(dateFormat, rest[0]); err == nil {
			event.ScheduledPregnancyCheckDate = &check
			rest = rest[1:]
		}
	}
	event.Memo = strings.Join(rest, " ")
	return event, nil
}

func cattleIDArg(cmd models.Command) (int64, error) {
	if len(cmd.Args) == 0 {
		return 0, models.NewValidationError("cattle_id", "cattle id is required, e.g. /%s 42", cmd.Type)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(cmd.Args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("cattle_id", "%q is not a valid cattle id", cmd.Args[0])
	}
	return id, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, "#"+strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}
