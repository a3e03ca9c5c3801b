package models

import (
	"strings"
	"time"
)

// CommandType enumerates supported WhatsApp command categories.
type CommandType string

const (
	CommandInseminate CommandType = "inseminate"
	CommandConfirm    CommandType = "confirm"
	CommandCalve      CommandType = "calve"
	CommandNewCycle   CommandType = "newcycle"
	CommandStatus     CommandType = "status"
	CommandAttention  CommandType = "attention"
	CommandUnknown    CommandType = "unknown"
)

// Command represents a parsed herdsman instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages. Only
// the command word is case-folded; arguments keep their case so memos survive.
func ParseCommand(message string) Command {
	trimmed := strings.TrimSpace(message)
	cmd := Command{Raw: message}

	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		cmd.Type = CommandUnknown
		return cmd
	}

	head := strings.TrimPrefix(strings.ToLower(tokens[0]), "/")
	switch head {
	case string(CommandInseminate), "ai":
		cmd.Type = CommandInseminate
	case string(CommandConfirm), "pregnant":
		cmd.Type = CommandConfirm
	case string(CommandCalve), "calving":
		cmd.Type = CommandCalve
	case string(CommandNewCycle), "reset":
		cmd.Type = CommandNewCycle
	case string(CommandStatus):
		cmd.Type = CommandStatus
	case string(CommandAttention):
		cmd.Type = CommandAttention
	default:
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}

// RecordEventCommand asks the breeding core to append one event to an
// animal's log.
type RecordEventCommand struct {
	RequesterUserID int64
	CattleID        int64
	Event           BreedingEvent
}

// InitializeCommand asks the breeding core to create an animal's aggregate.
type InitializeCommand struct {
	RequesterUserID int64
	CattleID        int64
}

// StatusQuery asks for the stored aggregate of one animal.
type StatusQuery struct {
	RequesterUserID int64
	CattleID        int64
}

// BatchOptions selects the page of a batch recalculation sweep.
type BatchOptions struct {
	Limit  int
	Offset int
	Force  bool
}

// BatchItemError records one animal that failed during a sweep.
type BatchItemError struct {
	CattleID int64  `json:"cattle_id"`
	Message  string `json:"message"`
}

// BatchResult reports the outcome of a sweep. It is returned even when every
// item failed.
type BatchResult struct {
	ProcessedCount int              `json:"processed_count"`
	UpdatedCount   int              `json:"updated_count"`
	SkippedCount   int              `json:"skipped_count"`
	Errors         []BatchItemError `json:"errors"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
}
