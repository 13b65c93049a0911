package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-tutor-backend/models"

	"github.com/redis/go-redis/v9"
)

// State is what the service remembers about one UI chat session.
type State struct {
	SessionID      string               `json:"session_id"`
	AgentID        string               `json:"agent_id"`
	AgentSessionID string               `json:"agent_session_id,omitempty"`
	Messages       []models.ChatMessage `json:"messages"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// SessionStore persists UI session state. Load returns nil, nil for an
// unknown or expired session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
}

const sessionKeyPrefix = "chat:session:"

type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*State, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode chat session: %w", err)
	}
	return &st, nil
}

// Save writes the state and refreshes its expiry.
func (s *RedisSessionStore) Save(ctx context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+state.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save chat session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process. Used when Redis is not
// configured and in tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]State
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]State{}}
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	st.Messages = append([]models.ChatMessage(nil), st.Messages...)
	return &st, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, state *State) error {
	st := *state
	st.Messages = append([]models.ChatMessage(nil), state.Messages...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = st
	return nil
}
