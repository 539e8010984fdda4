// FILE: internal/service/feedback_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"comai-chat-be/internal/constant"
	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/repository/specification"
	"comai-chat-be/internal/repository/unitofwork"

	"comai-chat-be/pkg/events"
	pktNats "comai-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type IFeedbackService interface {
	SubmitFeedback(ctx context.Context, userId uuid.UUID, request *dto.SubmitFeedbackRequest) error
}

type feedbackService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewFeedbackService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IFeedbackService {
	return &feedbackService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

// SubmitFeedback resolves the rated answer and the question that produced it,
// then enqueues the pair for the feedback worker. The HTTP request returns as
// soon as the job is queued; forwarding happens asynchronously.
func (s *feedbackService) SubmitFeedback(ctx context.Context, userId uuid.UUID, request *dto.SubmitFeedbackRequest) error {
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

	answer, err := uow.MessageRepository().FindOne(ctx,
		specification.ByID{ID: request.MessageId},
		specification.ByConversationID{ConversationID: request.ConversationId},
	)
	if err != nil {
		return err
	}
	if answer == nil || answer.Role != constant.MessageRoleAssistant {
		return fmt.Errorf("assistant message not found")
	}

	// The rated answer is paired with the user question that preceded it.
	question, err := uow.MessageRepository().FindPrecedingUserMessage(ctx, request.ConversationId, answer.CreatedAt)
	if err != nil {
		return err
	}
	if question == nil {
		return fmt.Errorf("originating question not found")
	}

	job := dto.FeedbackJobMessage{
		Question: question.Content,
		Answer:   answer.Content,
		Positive: *request.Positive,
	}
	jobJson, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.publisherService.Publish(ctx, jobJson); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeFeedbackSubmitted,
			Data: map[string]interface{}{
				"conversation_id": request.ConversationId,
				"message_id":      request.MessageId,
				"user_id":         userId,
				"positive":        *request.Positive,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish FEEDBACK_SUBMITTED event: %v\n", err)
		}
	}

	return nil
}
