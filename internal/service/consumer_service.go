// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"log"

	"comai-chat-be/internal/dto"
	"comai-chat-be/pkg/ragclient"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService drains the feedback queue and forwards each rating to the
// answer backend.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	ragClient *ragclient.Client
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	ragClient *ragclient.Client,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		ragClient: ragClient,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.FeedbackJobMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		log.Printf("[ERROR] Failed to unmarshal feedback job: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Forwarding feedback (positive=%t, answer length: %d)", job.Positive, len(job.Answer))

	err := cs.ragClient.SendFeedback(ctx, ragclient.FeedbackRequest{
		Question: job.Question,
		Answer:   job.Answer,
		Positive: job.Positive,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to forward feedback: %v", err)
		msg.Nack() // Nack for retriable errors
		return
	}

	log.Printf("[SUCCESS] Feedback forwarded (positive=%t)", job.Positive)
	msg.Ack()
}
