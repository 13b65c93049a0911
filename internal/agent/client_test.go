package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Protocol(t *testing.T) {
	var gotEvent EventRequest
	var gotQuery map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "tutor" {
			http.Error(w, `{"detail":"agent not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(Agent{ID: "tutor", Name: "AI Tutor"})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("allow_greeting"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(Session{ID: "s-1", AgentID: body["agent_id"]})
	})
	mux.HandleFunc("POST /sessions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotEvent))
		_ = json.NewEncoder(w).Encode(Event{ID: "e-1", Source: gotEvent.Source, Kind: gotEvent.Kind, Offset: 4})
	})
	mux.HandleFunc("GET /sessions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"source":        q.Get("source"),
			"kinds":         q.Get("kinds"),
			"min_offset":    q.Get("min_offset"),
			"wait_for_data": q.Get("wait_for_data"),
		}
		_ = json.NewEncoder(w).Encode([]Event{
			{ID: "e-2", Source: SourceAIAgent, Kind: KindMessage, Offset: 5, Data: map[string]any{"message": "Hello!"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	a, err := c.RetrieveAgent(ctx, "tutor")
	require.NoError(t, err)
	assert.Equal(t, "AI Tutor", a.Name)

	_, err = c.RetrieveAgent(ctx, "ghost")
	assert.True(t, IsNotFound(err))

	sess, err := c.CreateSession(ctx, "tutor", false)
	require.NoError(t, err)
	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, "tutor", sess.AgentID)

	ev, err := c.CreateEvent(ctx, sess.ID, EventRequest{Source: SourceCustomer, Kind: KindMessage, Message: "hi", ExtraInfo: "page: graphs"})
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Offset)
	assert.Equal(t, "page: graphs", gotEvent.ExtraInfo)

	events, err := c.ListEvents(ctx, sess.ID, ListEventsParams{
		Source: SourceAIAgent, Kinds: []string{KindMessage}, MinOffset: ev.Offset, WaitForData: 60 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	msg, ok := events[0].Message()
	assert.True(t, ok)
	assert.Equal(t, "Hello!", msg)
	assert.Equal(t, map[string]string{"source": "ai_agent", "kinds": "message", "min_offset": "4", "wait_for_data": "60"}, gotQuery)
}

func TestEvent_MessageWithoutData(t *testing.T) {
	_, ok := Event{}.Message()
	assert.False(t, ok)
	_, ok = Event{Data: map[string]any{"message": 3}}.Message()
	assert.False(t, ok)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	for i := 0; i < 5; i++ {
		_, err := c.RetrieveAgent(context.Background(), "tutor")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	}

	_, err := c.RetrieveAgent(context.Background(), "tutor")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 5, calls)
}
