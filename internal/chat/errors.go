package chat

import "errors"

// Errors surfaced to the learner for a failed turn. The underlying cause is
// wrapped alongside.
var (
	ErrAgentRetrieve  = errors.New("error retrieving agent")
	ErrSessionCreate  = errors.New("error creating session")
	ErrSendMessage    = errors.New("error sending message")
	ErrReceiveMessage = errors.New("error retrieving AI response")
	ErrEmptyReply     = errors.New("the response of the AI agent could not be retrieved")
	ErrNoSession      = errors.New("chat session not initialised")
)
