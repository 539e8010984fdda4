// FILE: internal/dto/chat_dto.go
package dto

import (
	"github.com/google/uuid"
)

type StreamChatRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	Question       string    `json:"question" validate:"required,min=1"`
}

type CancelStreamRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
}

type QueryChatRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	Question       string    `json:"question" validate:"required,min=1"`
}

// ChatExchangeResponse is the blocking /query result: both persisted turns.
type ChatExchangeResponse struct {
	ConversationId uuid.UUID        `json:"conversation_id"`
	Title          string           `json:"title"`
	Sent           *MessageResponse `json:"sent"`
	Reply          *MessageResponse `json:"reply"`
}

// StreamLine is one NDJSON line re-emitted to the browser while an answer
// streams in. Type is "delta" per assembler snapshot, then a single
// "done" or "error".
type StreamLine struct {
	Type      string   `json:"type"`
	Answer    string   `json:"answer,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	FollowUps []string `json:"follow_ups,omitempty"`

	// done only
	MessageId *uuid.UUID `json:"message_id,omitempty"`
	Title     string     `json:"title,omitempty"`

	// error only
	Message string `json:"message,omitempty"`
}
