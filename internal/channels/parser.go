package channels

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	envelopeURLVerification = "url_verification"
	envelopeEventCallback   = "event_callback"
)

var ErrEmptyPayload = errors.New("webhook payload is empty")

// Event is an authenticated Slack event handed to downstream logic.
type Event struct {
	Type      string
	EventID   string
	TeamID    string
	User      string
	EventTime int64
	Payload   json.RawMessage
}

type envelope struct {
	Type      string
	Challenge string
	Event     *Event
}

func parseEnvelope(body []byte) (envelope, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return envelope{}, ErrEmptyPayload
	}

	var payload struct {
		Type      string          `json:"type"`
		Challenge string          `json:"challenge"`
		TeamID    string          `json:"team_id"`
		EventID   string          `json:"event_id"`
		EventTime int64           `json:"event_time"`
		Event     json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return envelope{}, fmt.Errorf("parsing slack payload: %w", err)
	}

	env := envelope{
		Type:      strings.TrimSpace(payload.Type),
		Challenge: strings.TrimSpace(payload.Challenge),
	}
	if env.Type != envelopeEventCallback {
		return env, nil
	}

	var inner struct {
		Type  string `json:"type"`
		User  string `json:"user"`
		BotID string `json:"bot_id"`
	}
	if len(payload.Event) > 0 {
		if err := json.Unmarshal(payload.Event, &inner); err != nil {
			return envelope{}, fmt.Errorf("parsing slack event: %w", err)
		}
	}
	user := strings.TrimSpace(inner.User)
	if user == "" {
		user = strings.TrimSpace(inner.BotID)
	}

	env.Event = &Event{
		Type:      strings.TrimSpace(inner.Type),
		EventID:   strings.TrimSpace(payload.EventID),
		TeamID:    strings.TrimSpace(payload.TeamID),
		User:      user,
		EventTime: payload.EventTime,
		Payload:   payload.Event,
	}
	return env, nil
}
