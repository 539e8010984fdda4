package bootstrap

import (
	"context"
	"log"

	"comai-chat-be/internal/config"
	"comai-chat-be/internal/controller"
	"comai-chat-be/internal/handler"
	"comai-chat-be/internal/pkg/logger"
	"comai-chat-be/internal/pkg/mailer"
	"comai-chat-be/internal/repository/memory"
	"comai-chat-be/internal/repository/unitofwork"
	"comai-chat-be/internal/service"
	"comai-chat-be/internal/websocket"
	"comai-chat-be/pkg/ragclient"

	pktNats "comai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	OAuthController        controller.IOAuthController
	UserController         controller.IUserController
	ConversationController controller.IConversationController
	ChatController         controller.IChatController
	FeedbackController     controller.IFeedbackController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Live Sync
	SyncHandler  *handler.SyncHandler
	WebSocketHub *websocket.Hub

	// Exposed for the health endpoint
	DB        *gorm.DB
	RagClient *ragclient.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// Answer backend client
	ragClient := ragclient.NewClient(cfg.Rag.BaseURL)
	log.Printf("[INFO] Using answer backend at %s", cfg.Rag.BaseURL)

	// In-memory state: active streams and OAuth login states
	streamRegistry := memory.NewStreamRegistry()
	loginStates := memory.NewLoginStateRepository()

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/sync.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	publisherService := service.NewPublisherService(cfg.Keys.FeedbackTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.FeedbackTopic,
		ragClient,
	)

	userService := service.NewUserService(uowFactory, natsPub)
	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	oauthService := service.NewOAuthService(uowFactory, loginStates)

	conversationService := service.NewConversationService(uowFactory, natsPub)
	chatService := service.NewChatService(
		uowFactory,
		ragClient,
		streamRegistry,
		natsPub,
	)
	feedbackService := service.NewFeedbackService(uowFactory, publisherService, natsPub)

	// 3.5 Live Sync Worker
	syncService := service.NewSyncService(natsSub, wsHub, wsLogger) // Hub implements SyncDelivery

	if natsSub != nil {
		go syncService.Start()
	}

	// Handler
	syncHandler := handler.NewSyncHandler(wsHub, wsLogger)

	// 4. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		SyncHandler:  syncHandler,
		WebSocketHub: wsHub,

		AuthController:         controller.NewAuthController(authService),
		OAuthController:        controller.NewOAuthController(oauthService),
		UserController:         controller.NewUserController(userService),
		ConversationController: controller.NewConversationController(conversationService),
		ChatController:         controller.NewChatController(chatService),
		FeedbackController:     controller.NewFeedbackController(feedbackService),

		ConsumerService: consumerService,

		DB:        db,
		RagClient: ragClient,
	}
}
