// FILE: internal/service/conversation_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"comai-chat-be/internal/constant"
	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/entity"
	"comai-chat-be/internal/repository/specification"
	"comai-chat-be/internal/repository/unitofwork"

	"comai-chat-be/pkg/events"
	pktNats "comai-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type IConversationService interface {
	ListConversations(ctx context.Context, userId uuid.UUID) ([]*dto.ConversationResponse, error)
	CreateConversation(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error)
	GetMessages(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.MessageResponse, error)
	RenameConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID, req *dto.RenameConversationRequest) error
	DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error
}

type conversationService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
}

func NewConversationService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher) IConversationService {
	return &conversationService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (s *conversationService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
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

func (s *conversationService) ListConversations(ctx context.Context, userId uuid.UUID) ([]*dto.ConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		response = append(response, &dto.ConversationResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}

	return response, nil
}

func (s *conversationService) CreateConversation(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	title := req.Title
	if title == "" {
		title = constant.DefaultConversationTitle
	}

	now := time.Now()
	conversation := entity.Conversation{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: now,
	}

	if err := uow.ConversationRepository().Create(ctx, &conversation); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeConversationCreated, map[string]interface{}{
		"conversation_id": conversation.Id,
		"user_id":         userId,
		"title":           conversation.Title,
	})

	return &dto.ConversationResponse{
		Id:        conversation.Id,
		Title:     conversation.Title,
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}, nil
}

func (s *conversationService) GetMessages(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Ownership check. Foreign conversations read as not found.
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("conversation not found or access denied")
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, &dto.MessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Sources:   m.Sources,
			FollowUps: m.FollowUps,
			CreatedAt: m.CreatedAt,
		})
	}

	return response, nil
}

func (s *conversationService) RenameConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID, req *dto.RenameConversationRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation not found or access denied")
	}

	conversation.Title = req.Title
	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		return err
	}

	s.publish(ctx, events.TypeConversationRenamed, map[string]interface{}{
		"conversation_id": conversation.Id,
		"user_id":         userId,
		"title":           conversation.Title,
	})

	return nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation not found or access denied")
	}

	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		return err
	}

	s.publish(ctx, events.TypeConversationDeleted, map[string]interface{}{
		"conversation_id": conversationId,
		"user_id":         userId,
	})

	return nil
}
