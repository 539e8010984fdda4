// FILE: internal/dto/conversation_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title string `json:"title" validate:"omitempty,max=120"`
}

type RenameConversationRequest struct {
	Title string `json:"title" validate:"required,min=1,max=120"`
}

type ConversationResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	FollowUps []string  `json:"follow_ups,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
