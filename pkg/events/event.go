package events

import (
	"strings"
	"time"
)

// Event type codes published on the bus. The NATS subject is
// "events.<code>".
const (
	TypeUserLogin             = "USER_LOGIN"
	TypeUserDeleted           = "USER_DELETED"
	TypeConversationCreated   = "CONVERSATION_CREATED"
	TypeConversationRenamed   = "CONVERSATION_RENAMED"
	TypeConversationDeleted   = "CONVERSATION_DELETED"
	TypeChatExchangeCompleted = "CHAT_EXCHANGE_COMPLETED"
	TypeFeedbackSubmitted     = "FEEDBACK_SUBMITTED"
)

const subjectPrefix = "events."

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_LOGIN").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject returns the NATS subject for an event type code.
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

// TypeFromSubject recovers the event type code from a NATS subject.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, subjectPrefix)
}
