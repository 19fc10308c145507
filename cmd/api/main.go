package main

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"griya/internal/adapter/api"
	"griya/internal/adapter/api/handler"
	apimiddleware "griya/internal/adapter/api/middleware"
	"griya/internal/adapter/api/router"
	"griya/internal/adapter/repository"
	"griya/internal/infrastructure/firebase"
	"griya/internal/infrastructure/notification"
	"griya/internal/infrastructure/presence"
	"griya/internal/infrastructure/websocket"
	"griya/internal/usecase"
	"griya/pkg/config"
	"griya/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	fb, err := firebase.Setup(ctx, cfg.FirebaseProject, cfg.FirebaseCredentials)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer fb.Close()

	userRepo := repository.NewFirestoreUserRepository(fb.Firestore)
	listingRepo := repository.NewFirestoreListingRepository(fb.Firestore)
	appointmentRepo := repository.NewFirestoreAppointmentRepository(fb.Firestore)
	callHistoryRepo := repository.NewFirestoreCallHistoryRepository(fb.Firestore)

	presenceTimeout := time.Duration(cfg.PresenceTimeoutSeconds) * time.Second

	var presenceStore presence.Store = presence.NewMemoryStore()
	if cfg.RedisHost != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		presenceStore = presence.NewRedisStore(redisClient, presenceTimeout)
		logger.Info("Presence mirrored to Redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	presenceTracker := presence.NewTracker(presenceStore, presenceTimeout)

	var notifier notification.Dispatcher = notification.NewLogDispatcher()
	if len(cfg.KafkaBrokers) > 0 {
		notifier = notification.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaNotificationTopic)
		logger.Info("Notifications published to Kafka topic %s", cfg.KafkaNotificationTopic)
	}
	defer notifier.Close()

	manager := websocket.NewManager()

	chatUseCase := usecase.NewChatUseCase(appointmentRepo, listingRepo, userRepo, presenceTracker, manager, notifier)
	callUseCase := usecase.NewCallUseCase(appointmentRepo, callHistoryRepo, userRepo, manager, notifier)
	callUseCase.MissedCallTimeout = time.Duration(cfg.MissedCallSeconds) * time.Second

	presenceTracker.SetHooks(
		func(userID string) {
			manager.BroadcastAll("user-online", map[string]interface{}{"userId": userID})
			chatUseCase.HandleUserOnline(context.Background(), userID)
			callUseCase.HandleUserOnline(context.Background(), userID)
		},
		func(userID string, lastSeen time.Time) {
			manager.BroadcastAll("user-offline", map[string]interface{}{
				"userId":   userID,
				"lastSeen": lastSeen,
			})
		},
	)

	manager.OnDisconnect(func(client *websocket.Client) {
		callUseCase.HandleDisconnect(client.SocketID, client.UserID)
		if client.UserID != "" && !manager.UserOnline(client.UserID) {
			presenceTracker.ForceOffline(context.Background(), client.UserID)
		}
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authMiddleware := apimiddleware.NewAuthMiddleware(fb.Auth)
	adminMiddleware := apimiddleware.NewAdminMiddleware(userRepo)

	chatHandler := handler.NewChatHandler(chatUseCase)
	callHandler := handler.NewCallHandler(callUseCase)
	wsHandler := handler.NewWebSocketHandler(manager, presenceTracker, chatUseCase, callUseCase, userRepo)
	healthHandler := handler.NewHealthHandler()

	router.Setup(e, chatHandler, callHandler, wsHandler, healthHandler, authMiddleware, adminMiddleware)

	logger.Info("Starting server on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
