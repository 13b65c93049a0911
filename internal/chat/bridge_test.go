package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-tutor-backend/internal/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	retrieveErr error
	createErr   error
	eventErr    error
	listErr     error
	replies     []agent.Event

	sessionsCreated int
	lastEvent       agent.EventRequest
	lastList        agent.ListEventsParams
}

func (f *fakeAgent) RetrieveAgent(ctx context.Context, agentID string) (*agent.Agent, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return &agent.Agent{ID: agentID}, nil
}

func (f *fakeAgent) CreateSession(ctx context.Context, agentID string, allowGreeting bool) (*agent.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if allowGreeting {
		return nil, errors.New("greeting must be disabled")
	}
	f.sessionsCreated++
	return &agent.Session{ID: fmt.Sprintf("%s-session-%d", agentID, f.sessionsCreated), AgentID: agentID}, nil
}

func (f *fakeAgent) CreateEvent(ctx context.Context, sessionID string, req agent.EventRequest) (*agent.Event, error) {
	f.lastEvent = req
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	return &agent.Event{ID: "customer", Source: req.Source, Kind: req.Kind, Offset: 7}, nil
}

func (f *fakeAgent) ListEvents(ctx context.Context, sessionID string, params agent.ListEventsParams) ([]agent.Event, error) {
	f.lastList = params
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.replies, nil
}

func reply(msg string) agent.Event {
	return agent.Event{Source: agent.SourceAIAgent, Kind: agent.KindMessage, Offset: 8, Data: map[string]any{"message": msg}}
}

func TestInit_CreatesSessionOnce(t *testing.T) {
	fa := &fakeAgent{}
	b := NewBridge(fa, NewMemorySessionStore())
	ctx := context.Background()

	st, err := b.Init(ctx, "", "tutor")
	require.NoError(t, err)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, "tutor-session-1", st.AgentSessionID)

	again, err := b.Init(ctx, st.SessionID, "tutor")
	require.NoError(t, err)
	assert.Equal(t, st.AgentSessionID, again.AgentSessionID)
	assert.Equal(t, 1, fa.sessionsCreated)
}

func TestInit_SwitchingAgentResetsHistoryAndSession(t *testing.T) {
	fa := &fakeAgent{replies: []agent.Event{reply("hi")}}
	b := NewBridge(fa, NewMemorySessionStore())
	ctx := context.Background()

	st, err := b.Init(ctx, "ui-1", "tutor")
	require.NoError(t, err)
	_, err = b.Send(ctx, "ui-1", "hello", "")
	require.NoError(t, err)

	switched, err := b.Init(ctx, "ui-1", "quizmaster")
	require.NoError(t, err)
	assert.Empty(t, switched.Messages)
	assert.Equal(t, "quizmaster", switched.AgentID)
	assert.NotEqual(t, st.AgentSessionID, switched.AgentSessionID)
	assert.Equal(t, "quizmaster-session-2", switched.AgentSessionID)
}

func TestInit_Errors(t *testing.T) {
	cause := errors.New("connection refused")

	_, err := NewBridge(&fakeAgent{retrieveErr: cause}, NewMemorySessionStore()).Init(context.Background(), "ui", "tutor")
	assert.ErrorIs(t, err, ErrAgentRetrieve)
	assert.ErrorIs(t, err, cause)

	_, err = NewBridge(&fakeAgent{createErr: cause}, NewMemorySessionStore()).Init(context.Background(), "ui", "tutor")
	assert.ErrorIs(t, err, ErrSessionCreate)
}

func TestSend_Turn(t *testing.T) {
	fa := &fakeAgent{replies: []agent.Event{reply("A graph is a set of vertices."), reply("ignored")}}
	b := NewBridge(fa, NewMemorySessionStore(), WithWaitForData(30*time.Second))
	ctx := context.Background()

	_, err := b.Init(ctx, "ui-1", "tutor")
	require.NoError(t, err)

	turn, err := b.Send(ctx, "ui-1", "What is a graph?", "Roadmap: Algorithms")
	require.NoError(t, err)
	assert.Equal(t, "A graph is a set of vertices.", turn.Reply.Content)
	assert.Equal(t, "assistant", turn.Reply.Role)

	assert.Equal(t, agent.EventRequest{Source: "customer", Kind: "message", Message: "What is a graph?", ExtraInfo: "Roadmap: Algorithms"}, fa.lastEvent)
	assert.Equal(t, agent.ListEventsParams{Source: "ai_agent", Kinds: []string{"message"}, MinOffset: 7, WaitForData: 30 * time.Second}, fa.lastList)

	history, err := b.History(ctx, "ui-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestSend_Failures(t *testing.T) {
	cause := errors.New("timeout")
	tests := []struct {
		name  string
		agent *fakeAgent
		want  error
	}{
		{"send", &fakeAgent{eventErr: cause}, ErrSendMessage},
		{"receive", &fakeAgent{listErr: cause}, ErrReceiveMessage},
		{"no events", &fakeAgent{}, ErrReceiveMessage},
		{"no data", &fakeAgent{replies: []agent.Event{{Source: agent.SourceAIAgent, Kind: agent.KindMessage}}}, ErrEmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge(tt.agent, NewMemorySessionStore())
			ctx := context.Background()
			_, err := b.Init(ctx, "ui", "tutor")
			require.NoError(t, err)

			_, err = b.Send(ctx, "ui", "hello", "")
			assert.ErrorIs(t, err, tt.want)

			history, err := b.History(ctx, "ui")
			require.NoError(t, err)
			require.Len(t, history, 1, "the learner's message is kept")
			assert.Equal(t, "hello", history[0].Content)
		})
	}
}

func TestSend_WithoutInit(t *testing.T) {
	b := NewBridge(&fakeAgent{}, NewMemorySessionStore())
	_, err := b.Send(context.Background(), "unknown", "hi", "")
	assert.ErrorIs(t, err, ErrNoSession)

	history, err := b.History(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryLimit(t *testing.T) {
	fa := &fakeAgent{replies: []agent.Event{reply("ok")}}
	b := NewBridge(fa, NewMemorySessionStore(), WithHistoryLimit(3))
	ctx := context.Background()
	_, err := b.Init(ctx, "ui", "tutor")
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err := b.Send(ctx, "ui", msg, "")
		require.NoError(t, err)
	}

	history, err := b.History(ctx, "ui")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "ok", history[0].Content)
	assert.Equal(t, "three", history[1].Content)
}
