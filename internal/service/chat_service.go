// FILE: internal/service/chat_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"comai-chat-be/internal/constant"
	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/entity"
	"comai-chat-be/internal/repository/memory"
	"comai-chat-be/internal/repository/specification"
	"comai-chat-be/internal/repository/unitofwork"

	"comai-chat-be/pkg/events"
	pktNats "comai-chat-be/pkg/nats"
	"comai-chat-be/pkg/ragclient"

	"github.com/google/uuid"
)

// StreamEmitter writes one response line to the client. The controller owns
// the wire format and flushing; the service only decides what each line says.
// A non-nil error means the client is gone.
type StreamEmitter func(line *dto.StreamLine) error

type IChatService interface {
	// PrepareStream checks ownership, loads history and appends the user
	// message. It runs inside the HTTP request, before the response starts
	// streaming, so its errors still map to clean statuses.
	PrepareStream(ctx context.Context, userId uuid.UUID, request *dto.StreamChatRequest) (*ChatStream, error)
	CancelStream(ctx context.Context, userId uuid.UUID, request *dto.CancelStreamRequest) error
	QueryChat(ctx context.Context, userId uuid.UUID, request *dto.QueryChatRequest) (*dto.ChatExchangeResponse, error)
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	ragClient      *ragclient.Client
	streams        *memory.StreamRegistry
	eventPublisher *pktNats.Publisher
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	ragClient *ragclient.Client,
	streams *memory.StreamRegistry,
	eventPublisher *pktNats.Publisher,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		ragClient:      ragClient,
		streams:        streams,
		eventPublisher: eventPublisher,
	}
}

func (s *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}

// ChatStream is one prepared exchange, ready to stream. The user message is
// already persisted; Run drives the answer backend and the terminal
// bookkeeping.
type ChatStream struct {
	svc           *chatService
	conversation  *entity.Conversation
	userId        uuid.UUID
	question      string
	memoryContext string
}

func (s *chatService) PrepareStream(ctx context.Context, userId uuid.UUID, request *dto.StreamChatRequest) (*ChatStream, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Verify ownership. Foreign conversations read as not found.
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: request.ConversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("conversation not found or access denied")
	}

	// 2. Load prior turns before the new question joins them.
	history, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: request.ConversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	// 3. Append the user message. It stays persisted even when the answer
	// stream later fails or is cancelled.
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	userMessage := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           constant.MessageRoleUser,
		Content:        request.Question,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, userMessage); err != nil {
		return nil, err
	}
	if err := uow.ConversationRepository().Touch(ctx, conversation.Id); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &ChatStream{
		svc:           s,
		conversation:  conversation,
		userId:        userId,
		question:      request.Question,
		memoryContext: buildMemoryContext(history),
	}, nil
}

// Run streams the answer. ctx is the stream's lifetime, not the original
// request context: the response writer keeps running after the handler
// returns. Exactly one terminal line goes out on the completed and failed
// paths; a cancelled stream ends silently.
func (st *ChatStream) Run(ctx context.Context, emit StreamEmitter) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Starting a new stream for a conversation aborts the previous one.
	handle := st.svc.streams.Acquire(st.conversation.Id, cancel)
	defer st.svc.streams.Release(handle)

	outcome := st.svc.ragClient.StreamQuery(streamCtx, ragclient.QueryRequest{
		Question: st.question,
		Context:  st.memoryContext,
	}, func(snap ragclient.Snapshot) {
		line := &dto.StreamLine{
			Type:      "delta",
			Answer:    snap.Answer,
			Sources:   snap.Sources,
			FollowUps: snap.FollowUps,
		}
		if err := emit(line); err != nil {
			// Client disconnected; abort the upstream read.
			cancel()
		}
	})

	switch {
	case outcome.Cancelled():
		// Stop button, closed tab or a replacing stream. Nothing persisted,
		// nothing further emitted.
		return nil
	case outcome.Completed():
		if err := st.finish(ctx, outcome, emit); err != nil {
			emit(&dto.StreamLine{Type: "error", Message: constant.StreamFailureNotice})
			return err
		}
		return nil
	default:
		fmt.Printf("[WARN] Answer stream failed for conversation %s: %v\n", st.conversation.Id, outcome.Err)
		emit(&dto.StreamLine{Type: "error", Message: constant.StreamFailureNotice})
		return nil
	}
}

// finish persists the assistant turn, bumps and maybe auto-titles the
// conversation, publishes the exchange event and emits the done line. It uses
// the stream's base context so a late cancellation cannot corrupt an answer
// that already completed.
func (st *ChatStream) finish(ctx context.Context, outcome ragclient.Outcome, emit StreamEmitter) error {
	uow := st.svc.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	reply := &entity.Message{
		Id:             uuid.New(),
		ConversationId: st.conversation.Id,
		Role:           constant.MessageRoleAssistant,
		Content:        outcome.Answer,
		Sources:        outcome.Sources,
		FollowUps:      outcome.FollowUps,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, reply); err != nil {
		return err
	}

	// First completed exchange names the conversation.
	if st.conversation.Title == constant.DefaultConversationTitle {
		st.conversation.Title = deriveTitle(st.question)
		if err := uow.ConversationRepository().Update(ctx, st.conversation); err != nil {
			return err
		}
	}
	if err := uow.ConversationRepository().Touch(ctx, st.conversation.Id); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	st.svc.publish(ctx, events.TypeChatExchangeCompleted, map[string]interface{}{
		"conversation_id": st.conversation.Id,
		"user_id":         st.userId,
		"message_id":      reply.Id,
		"title":           st.conversation.Title,
	})

	emit(&dto.StreamLine{
		Type:      "done",
		MessageId: &reply.Id,
		Title:     st.conversation.Title,
	})
	return nil
}

func (s *chatService) CancelStream(ctx context.Context, userId uuid.UUID, request *dto.CancelStreamRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: request.ConversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation not found or access denied")
	}

	if !s.streams.Cancel(request.ConversationId) {
		return fmt.Errorf("no active stream for this conversation")
	}
	return nil
}

// QueryChat is the blocking variant: one request, both turns persisted, the
// full assistant message in the response.
func (s *chatService) QueryChat(ctx context.Context, userId uuid.UUID, request *dto.QueryChatRequest) (*dto.ChatExchangeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: request.ConversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("conversation not found or access denied")
	}

	history, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: request.ConversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	// The question timestamp is taken before the backend call so the two
	// turns never share an instant.
	sentAt := time.Now()

	answer, err := s.ragClient.Query(ctx, ragclient.QueryRequest{
		Question: request.Question,
		Context:  buildMemoryContext(history),
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	sent := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           constant.MessageRoleUser,
		Content:        request.Question,
		CreatedAt:      sentAt,
	}
	if err := uow.MessageRepository().Create(ctx, sent); err != nil {
		return nil, err
	}

	reply := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           constant.MessageRoleAssistant,
		Content:        answer.Answer,
		Sources:        answer.Sources,
		FollowUps:      answer.FollowUps,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, reply); err != nil {
		return nil, err
	}

	if conversation.Title == constant.DefaultConversationTitle {
		conversation.Title = deriveTitle(request.Question)
		if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
			return nil, err
		}
	}
	if err := uow.ConversationRepository().Touch(ctx, conversation.Id); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeChatExchangeCompleted, map[string]interface{}{
		"conversation_id": conversation.Id,
		"user_id":         userId,
		"message_id":      reply.Id,
		"title":           conversation.Title,
	})

	return &dto.ChatExchangeResponse{
		ConversationId: conversation.Id,
		Title:          conversation.Title,
		Sent: &dto.MessageResponse{
			Id:        sent.Id,
			Role:      sent.Role,
			Content:   sent.Content,
			CreatedAt: sent.CreatedAt,
		},
		Reply: &dto.MessageResponse{
			Id:        reply.Id,
			Role:      reply.Role,
			Content:   reply.Content,
			Sources:   reply.Sources,
			FollowUps: reply.FollowUps,
			CreatedAt: reply.CreatedAt,
		},
	}, nil
}

// buildMemoryContext flattens prior turns into the context block the answer
// backend expects: one "<role>: <content>" line per message, oldest first.
func buildMemoryContext(history []*entity.Message) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// deriveTitle names a conversation after its first question. Whitespace is
// collapsed and the result capped at AutoTitleMaxLen runes, ellipsis
// included.
func deriveTitle(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if title == "" {
		return constant.DefaultConversationTitle
	}
	runes := []rune(title)
	if len(runes) > constant.AutoTitleMaxLen {
		title = strings.TrimSpace(string(runes[:constant.AutoTitleMaxLen-3])) + "..."
	}
	return title
}
