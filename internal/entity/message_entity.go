package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message is one turn of a conversation. Sources and FollowUps are only set
// on assistant turns, exactly as the stream assembler produced them.
type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	Sources        []string
	FollowUps      []string
	CreatedAt      time.Time
}
