package channels_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valinor-ai/slackgate/internal/channels"
)

func serveEvents(t *testing.T, h *channels.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	chain := gatedServer(t, http.HandlerFunc(h.HandleEvents))
	chain.ServeHTTP(rec, signedRequest(t, "test", gateNow, body))
	return rec
}

func TestHandleEvents_URLVerification(t *testing.T) {
	h := channels.NewHandler(channels.DispatcherFunc(func(context.Context, channels.Event) error {
		t.Fatal("url_verification must not be dispatched")
		return nil
	}))

	rec := serveEvents(t, h, []byte(`{"type":"url_verification","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","token":"x"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", resp["challenge"])
}

func TestHandleEvents_DispatchesEvent(t *testing.T) {
	var got channels.Event
	h := channels.NewHandler(channels.DispatcherFunc(func(_ context.Context, e channels.Event) error {
		got = e
		return nil
	}))

	rec := serveEvents(t, h, []byte(`{"type":"event_callback","team_id":"T1","event_id":"Ev1","event":{"type":"app_mention","user":"U1"}}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "app_mention", got.Type)
	assert.Equal(t, "Ev1", got.EventID)
	assert.Equal(t, "T1", got.TeamID)
	assert.Equal(t, "U1", got.User)
}

func TestHandleEvents_DispatchError(t *testing.T) {
	h := channels.NewHandler(channels.DispatcherFunc(func(context.Context, channels.Event) error {
		return errors.New("downstream unavailable")
	}))

	rec := serveEvents(t, h, []byte(`{"type":"event_callback","event":{"type":"message"}}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing webhook failed", resp["error"])
	assert.NotEmpty(t, resp["correlation_id"])
}

func TestHandleEvents_InvalidPayload(t *testing.T) {
	h := channels.NewHandler(nil)

	rec := serveEvents(t, h, []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveEvents(t, h, []byte(``))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvents_DefaultDispatcherAcknowledges(t *testing.T) {
	rec := serveEvents(t, channels.NewHandler(nil), []byte(`{"type":"event_callback","event":{"type":"message"}}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleEvents_RequiresCapturedBody(t *testing.T) {
	h := channels.NewHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	h.HandleEvents(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
