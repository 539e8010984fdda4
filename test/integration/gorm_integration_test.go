package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"comai-chat-be/internal/constant"
	"comai-chat-be/internal/entity"
	"comai-chat-be/internal/repository/specification"
	"comai-chat-be/internal/repository/unitofwork"
	"comai-chat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.ConversationRepository())
	assert.NotNil(t, uow.MessageRepository())

	// Basic Ping
	err = database.Ping(context.Background(), gormDB)
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Setup: a user owning the test conversation
	userId := uuid.New()
	user := &entity.User{
		Id:       userId,
		Email:    "test-integration-" + uuid.New().String() + "@example.com",
		FullName: "Integration Test User",
		Role:     "user",
		Status:   "active",
	}
	err = uow.UserRepository().Create(context.Background(), user)
	assert.NoError(t, err)

	conversationId := uuid.New()

	t.Run("Check Transactional Chat Exchange", func(t *testing.T) {
		ctx := context.Background()
		err := uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		conversation := &entity.Conversation{
			Id:     conversationId,
			UserId: userId,
			Title:  constant.DefaultConversationTitle,
		}
		err = uow.ConversationRepository().Create(ctx, conversation)
		assert.NoError(t, err)

		// Pin timestamps so the ordering assertions below are deterministic.
		askedAt := time.Now()

		question := &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversationId,
			Role:           constant.MessageRoleUser,
			Content:        "What does the company do?",
			CreatedAt:      askedAt,
		}
		err = uow.MessageRepository().Create(ctx, question)
		assert.NoError(t, err)

		answer := &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversationId,
			Role:           constant.MessageRoleAssistant,
			Content:        "The company builds chat infrastructure.",
			Sources:        []string{"handbook.pdf"},
			FollowUps:      []string{"What products are in the catalog?"},
			CreatedAt:      askedAt.Add(2 * time.Second),
		}
		err = uow.MessageRepository().Create(ctx, answer)
		assert.NoError(t, err)

		err = uow.ConversationRepository().Touch(ctx, conversationId)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		t.Log("Successfully created Conversation with Messages in Transaction")
	})

	t.Run("Check Transcript Ordering and JSONB Round Trip", func(t *testing.T) {
		ctx := context.Background()
		messages, err := uow.MessageRepository().FindAll(ctx,
			specification.ByConversationID{ConversationID: conversationId},
			specification.OrderBy{Field: "created_at"},
		)
		assert.NoError(t, err)
		assert.Len(t, messages, 2)

		assert.Equal(t, constant.MessageRoleUser, messages[0].Role)
		assert.Equal(t, constant.MessageRoleAssistant, messages[1].Role)
		assert.Equal(t, []string{"handbook.pdf"}, messages[1].Sources)
		assert.Nil(t, messages[0].Sources)
	})

	t.Run("Check Preceding User Message Lookup", func(t *testing.T) {
		ctx := context.Background()
		messages, err := uow.MessageRepository().FindAll(ctx,
			specification.ByConversationID{ConversationID: conversationId},
			specification.OrderBy{Field: "created_at"},
		)
		assert.NoError(t, err)
		assert.Len(t, messages, 2)

		question, err := uow.MessageRepository().FindPrecedingUserMessage(ctx, conversationId, messages[1].CreatedAt)
		assert.NoError(t, err)
		assert.NotNil(t, question)
		assert.Equal(t, messages[0].Id, question.Id)
	})

	// Cleanup
	t.Cleanup(func() {
		ctx := context.Background()
		uow.ConversationRepository().Delete(ctx, conversationId)
		uow.UserRepository().Delete(ctx, userId)
	})
}
