// FILE: internal/dto/feedback_dto.go
package dto

import (
	"github.com/google/uuid"
)

type SubmitFeedbackRequest struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	MessageId      uuid.UUID `json:"message_id" validate:"required"`
	Positive       *bool     `json:"positive" validate:"required"`
}

// FeedbackJobMessage is the queue payload handed to the feedback worker. The
// question/answer pair is resolved before enqueueing so the worker never
// touches the store.
type FeedbackJobMessage struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Positive bool   `json:"positive"`
}
