// Package chat bridges UI chat sessions to sessions on the agent service.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-tutor-backend/internal/agent"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/telemetry"
	"ai-tutor-backend/models"

	"github.com/google/uuid"
)

// AgentAPI is the subset of the agent service the bridge relies on.
type AgentAPI interface {
	RetrieveAgent(ctx context.Context, agentID string) (*agent.Agent, error)
	CreateSession(ctx context.Context, agentID string, allowGreeting bool) (*agent.Session, error)
	CreateEvent(ctx context.Context, sessionID string, req agent.EventRequest) (*agent.Event, error)
	ListEvents(ctx context.Context, sessionID string, params agent.ListEventsParams) ([]agent.Event, error)
}

type Bridge struct {
	agents       AgentAPI
	sessions     SessionStore
	waitForData  time.Duration
	historyLimit int
	metrics      *telemetry.Metrics
	now          func() time.Time
}

type Option func(*Bridge)

// WithWaitForData sets how long the agent service may hold the reply poll open.
func WithWaitForData(d time.Duration) Option {
	return func(b *Bridge) { b.waitForData = d }
}

// WithHistoryLimit caps the transcript kept per session; 0 keeps everything.
func WithHistoryLimit(n int) Option {
	return func(b *Bridge) { b.historyLimit = n }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func NewBridge(agents AgentAPI, sessions SessionStore, opts ...Option) *Bridge {
	b := &Bridge{
		agents:      agents,
		sessions:    sessions,
		waitForData: 60 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init binds a UI session to an agent. Switching agents clears the transcript
// and opens a fresh agent session. An empty uiSessionID starts a new session.
func (b *Bridge) Init(ctx context.Context, uiSessionID, agentID string) (*State, error) {
	if uiSessionID == "" {
		uiSessionID = uuid.NewString()
	}

	st, err := b.sessions.Load(ctx, uiSessionID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &State{SessionID: uiSessionID, Messages: []models.ChatMessage{}}
	}

	if st.AgentID != agentID {
		st.AgentID = agentID
		st.AgentSessionID = ""
		st.Messages = []models.ChatMessage{}
	}

	if st.AgentSessionID == "" {
		if _, err := b.agents.RetrieveAgent(ctx, agentID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAgentRetrieve, err)
		}
		sess, err := b.agents.CreateSession(ctx, agentID, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionCreate, err)
		}
		st.AgentSessionID = sess.ID
		logger.Info("Agent session created", "session_id", uiSessionID, "agent_id", agentID, "agent_session_id", sess.ID)
	}

	st.UpdatedAt = b.now()
	if err := b.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Send runs one chat turn. The learner's message stays in the transcript even
// when the turn fails.
func (b *Bridge) Send(ctx context.Context, uiSessionID, text, extraInfo string) (*models.ChatResponse, error) {
	st, err := b.sessions.Load(ctx, uiSessionID)
	if err != nil {
		return nil, err
	}
	if st == nil || st.AgentSessionID == "" {
		return nil, ErrNoSession
	}

	user := models.ChatMessage{Role: "user", Content: text, Timestamp: b.now()}
	b.appendMessage(st, user)
	if err := b.sessions.Save(ctx, st); err != nil {
		return nil, err
	}

	reply, err := b.exchange(ctx, st.AgentSessionID, text, extraInfo)
	if err != nil {
		b.metrics.RecordChatTurn(outcome(err))
		logger.Warn("Chat turn failed", "session_id", uiSessionID, "agent_session_id", st.AgentSessionID, "error", err)
		return nil, err
	}

	assistant := models.ChatMessage{Role: "assistant", Content: reply, Timestamp: b.now()}
	b.appendMessage(st, assistant)
	if err := b.sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	b.metrics.RecordChatTurn("ok")

	return &models.ChatResponse{SessionID: uiSessionID, User: user, Reply: assistant}, nil
}

func (b *Bridge) exchange(ctx context.Context, agentSessionID, text, extraInfo string) (string, error) {
	customer, err := b.agents.CreateEvent(ctx, agentSessionID, agent.EventRequest{
		Source:    agent.SourceCustomer,
		Kind:      agent.KindMessage,
		Message:   text,
		ExtraInfo: extraInfo,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendMessage, err)
	}

	events, err := b.agents.ListEvents(ctx, agentSessionID, agent.ListEventsParams{
		Source:      agent.SourceAIAgent,
		Kinds:       []string{agent.KindMessage},
		MinOffset:   customer.Offset,
		WaitForData: b.waitForData,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReceiveMessage, err)
	}
	if len(events) == 0 {
		return "", fmt.Errorf("%w: no agent message after offset %d", ErrReceiveMessage, customer.Offset)
	}

	msg, ok := events[0].Message()
	if !ok {
		return "", ErrEmptyReply
	}
	return msg, nil
}

// History returns the transcript of a UI session, empty when unknown.
func (b *Bridge) History(ctx context.Context, uiSessionID string) ([]models.ChatMessage, error) {
	st, err := b.sessions.Load(ctx, uiSessionID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return []models.ChatMessage{}, nil
	}
	return st.Messages, nil
}

func (b *Bridge) appendMessage(st *State, msg models.ChatMessage) {
	st.Messages = append(st.Messages, msg)
	if b.historyLimit > 0 && len(st.Messages) > b.historyLimit {
		st.Messages = st.Messages[len(st.Messages)-b.historyLimit:]
	}
	st.UpdatedAt = msg.Timestamp
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSendMessage):
		return "send_failed"
	case errors.Is(err, ErrReceiveMessage):
		return "receive_failed"
	case errors.Is(err, ErrEmptyReply):
		return "empty_reply"
	default:
		return "error"
	}
}
