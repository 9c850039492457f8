package audit

import (
	"context"

	"github.com/google/uuid"
)

// Event records a single verification decision.
type Event struct {
	ID        uuid.UUID
	RequestID string
	Action    string // e.g. "slack.request.accepted"
	Outcome   string // accepted, malformed, stale, type_error, mismatch
	Metadata  map[string]any
	Source    string // "slack", "system"
}

const (
	ActionSlackRequestAccepted          = "slack.request.accepted"
	ActionSlackRequestRejectedMalformed = "slack.request.rejected_malformed"
	ActionSlackRequestRejectedStale     = "slack.request.rejected_stale"
	ActionSlackRequestRejectedTypeError = "slack.request.rejected_type_error"
	ActionSlackRequestRejectedMismatch  = "slack.request.rejected_mismatch"
)

const (
	SourceSlack  = "slack"
	SourceSystem = "system"
)

const (
	MetadataOutcome   = "outcome"
	MetadataReason    = "reason"
	MetadataTimestamp = "timestamp"
	MetadataError     = "error"
)

// ActionForOutcome returns the audit action for a verification outcome.
func ActionForOutcome(outcome string) string {
	switch outcome {
	case "accepted":
		return ActionSlackRequestAccepted
	case "malformed":
		return ActionSlackRequestRejectedMalformed
	case "stale":
		return ActionSlackRequestRejectedStale
	case "type_error":
		return ActionSlackRequestRejectedTypeError
	default:
		return ActionSlackRequestRejectedMismatch
	}
}

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }
