package channels

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/valinor-ai/slackgate/internal/platform/middleware"
)

// Dispatcher receives events that passed verification.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogDispatcher acknowledges events by logging them.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(ctx context.Context, event Event) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "slack event received",
		"event_type", event.Type,
		"event_id", event.EventID,
		"team_id", event.TeamID,
	)
	return nil
}

// Handler serves the Slack events endpoint. It must sit behind
// CaptureRawBody and a Gate.
type Handler struct {
	dispatcher Dispatcher
}

// NewHandler creates an events handler. A nil dispatcher logs events.
func NewHandler(dispatcher Dispatcher) *Handler {
	if dispatcher == nil {
		dispatcher = LogDispatcher{}
	}
	return &Handler{dispatcher: dispatcher}
}

// HandleEvents processes an authenticated Slack events payload.
// POST /slack/events
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetRequestID(ctx)

	body, ok := RawBodyFromContext(ctx).Bytes()
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          ErrBodyNotCaptured.Error(),
			"correlation_id": correlationID,
		})
		return
	}

	env, err := parseEnvelope(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":          "invalid webhook payload",
			"correlation_id": correlationID,
		})
		return
	}

	switch {
	case env.Type == envelopeURLVerification:
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	case env.Event != nil:
		if err := h.dispatcher.Dispatch(ctx, *env.Event); err != nil {
			slog.ErrorContext(ctx, "slack event dispatch failed",
				"error", err,
				"event_id", env.Event.EventID,
				"correlation_id", correlationID,
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":          "processing webhook failed",
				"correlation_id": correlationID,
			})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}
