package channels

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/valinor-ai/slackgate/internal/audit"
	"github.com/valinor-ai/slackgate/internal/platform/middleware"
)

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, verr *VerificationError)

// Gate runs a Verifier in front of a handler. Accepted requests pass through
// unchanged; rejected requests stop at the gate.
type Gate struct {
	verifier    Verifier
	now         func() time.Time
	onReject    ErrorHandler
	logger      *slog.Logger
	auditLogger audit.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock injects the time source used for freshness checks.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithErrorHandler replaces the default JSON rejection writer.
func WithErrorHandler(h ErrorHandler) GateOption {
	return func(g *Gate) {
		if h != nil {
			g.onReject = h
		}
	}
}

// WithLogger sets the logger for verification decisions.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithAuditLogger records every decision as an audit event.
func WithAuditLogger(l audit.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.auditLogger = l
		}
	}
}

// NewGate wraps verifier in a request gate.
func NewGate(verifier Verifier, opts ...GateOption) *Gate {
	g := &Gate{
		verifier:    verifier,
		now:         time.Now,
		onReject:    writeVerificationError,
		logger:      slog.Default(),
		auditLogger: audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware returns next guarded by signature verification.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := g.now()
		body := RawBodyFromContext(ctx)
		requestID := middleware.GetRequestID(ctx)

		err := g.verifier.Verify(r.Header, body, now)
		if err == nil {
			g.logger.DebugContext(ctx, "slack request verified", "request_id", requestID)
			g.auditLogger.Log(ctx, decisionEvent(requestID, OutcomeAccepted, nil))
			next.ServeHTTP(w, r)
			return
		}

		verr := NewVerificationError(err, r.Header, now)
		attrs := []any{
			"request_id", requestID,
			"outcome", string(verr.Outcome),
			"status", verr.Status,
			"error", err,
		}
		level := slog.LevelWarn
		if verr.Outcome == OutcomeTypeError {
			// An oversized body is the sender's fault; anything else means
			// capture was never wired in front of the gate.
			if captureErr := CaptureErrorFromContext(ctx); IsBodyTooLarge(captureErr) {
				attrs = append(attrs, "capture_error", captureErr)
			} else {
				level = slog.LevelError
			}
		}
		g.logger.Log(ctx, level, "slack request rejected", attrs...)
		g.auditLogger.Log(ctx, decisionEvent(requestID, verr.Outcome, verr))
		g.onReject(w, r, verr)
	})
}

func decisionEvent(requestID string, outcome Outcome, verr *VerificationError) audit.Event {
	metadata := map[string]any{
		audit.MetadataOutcome: string(outcome),
	}
	if verr != nil {
		metadata[audit.MetadataReason] = verr.Reason
		metadata[audit.MetadataTimestamp] = verr.Timestamp
		if verr.Err != nil {
			metadata[audit.MetadataError] = verr.Err.Error()
		}
	}
	return audit.Event{
		RequestID: requestID,
		Action:    audit.ActionForOutcome(string(outcome)),
		Outcome:   string(outcome),
		Metadata:  metadata,
		Source:    audit.SourceSlack,
	}
}

func writeVerificationError(w http.ResponseWriter, r *http.Request, verr *VerificationError) {
	writeJSON(w, verr.Status, map[string]string{
		"error":          verr.Reason,
		"decision":       string(verr.Outcome),
		"correlation_id": middleware.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
