package contract

import (
	"context"

	"comai-chat-be/internal/entity"
	"comai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	Update(ctx context.Context, conversation *entity.Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)

	// Touch bumps updated_at so the conversation list sorts by recency
	// after a message is appended.
	Touch(ctx context.Context, id uuid.UUID) error
}
