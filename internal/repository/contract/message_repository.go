package contract

import (
	"context"
	"time"

	"comai-chat-be/internal/entity"
	"comai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)

	// FindPrecedingUserMessage returns the latest user-role message created
	// before the given instant. Used to pair an assistant answer with the
	// question that produced it.
	FindPrecedingUserMessage(ctx context.Context, conversationId uuid.UUID, before time.Time) (*entity.Message, error)
}
