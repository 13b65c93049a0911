package models

import "time"

// ChatMessage is one entry of a UI session's transcript.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type StartChatRequest struct {
	AgentID   string `json:"agent_id" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type StartChatResponse struct {
	SessionID      string        `json:"session_id"`
	AgentID        string        `json:"agent_id"`
	AgentSessionID string        `json:"agent_session_id"`
	Messages       []ChatMessage `json:"messages"`
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required,min=1,max=4000"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

type ChatResponse struct {
	SessionID string      `json:"session_id"`
	User      ChatMessage `json:"user"`
	Reply     ChatMessage `json:"reply"`
}
