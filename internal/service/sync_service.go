package service

import (
	"context"
	"fmt"

	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/pkg/logger"
	"comai-chat-be/pkg/events"
	pktNats "comai-chat-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
)

// SyncDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type SyncDelivery interface {
	Send(userID uuid.UUID, event dto.SyncEventMessage)
}

// syncKinds maps bus event types to the dotted kinds the front-end listens
// for. Events outside this map are acknowledged and dropped.
var syncKinds = map[string]string{
	events.TypeConversationCreated:   "conversation.created",
	events.TypeConversationRenamed:   "conversation.renamed",
	events.TypeConversationDeleted:   "conversation.deleted",
	events.TypeChatExchangeCompleted: "chat.exchange_completed",
}

// SyncService bridges the event bus to connected browsers: every
// conversation mutation is pushed to all of the owning user's clients so
// open tabs stay consistent without polling.
type SyncService struct {
	subscriber *pktNats.Subscriber
	delivery   SyncDelivery
	logger     logger.ILogger
}

func NewSyncService(sub *pktNats.Subscriber, delivery SyncDelivery, log logger.ILogger) *SyncService {
	return &SyncService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *SyncService) Start() {
	// Subscribe to all events with a durable consumer
	err := s.subscriber.Subscribe("events.>", "chat-sync-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("SyncService", "Failed to start sync subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("SyncService", "Sync service started, listening to events.>", nil)
}

func (s *SyncService) handleEvent(ctx context.Context, event events.Event) error {
	kind, ok := syncKinds[event.EventType()]
	if !ok {
		// Not a client-facing event (logins, feedback, ...). Ack and move on.
		return nil
	}

	payload := event.Payload()
	uidStr, ok := payload["user_id"].(string)
	if !ok {
		s.logger.Warn("SyncService", fmt.Sprintf("Event %s carries no user_id, dropping", event.EventType()), nil)
		return nil
	}
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("SyncService", fmt.Sprintf("Event %s carries malformed user_id %q, dropping", event.EventType(), uidStr), nil)
		return nil
	}

	if s.delivery != nil {
		s.delivery.Send(uid, dto.SyncEventMessage{
			Type:       kind,
			Payload:    payload,
			OccurredAt: event.Timestamp(),
		})
	}

	return nil
}
