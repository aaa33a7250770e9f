package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/db"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"dragonflychat/internal/adapter/api"
	"dragonflychat/internal/adapter/api/handler"
	apimiddleware "dragonflychat/internal/adapter/api/middleware"
	"dragonflychat/internal/adapter/api/router"
	"dragonflychat/internal/adapter/repository"
	"dragonflychat/internal/adapter/repository/memory"
	domainrepo "dragonflychat/internal/domain/repository"
	"dragonflychat/internal/infrastructure/chatbot"
	"dragonflychat/internal/infrastructure/firebase"
	"dragonflychat/internal/infrastructure/ratelimit"
	"dragonflychat/internal/infrastructure/redis"
	"dragonflychat/internal/infrastructure/websocket"
	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/config"
	"dragonflychat/pkg/logger"
)

type stores struct {
	users         domainrepo.UserRepository
	conversations domainrepo.ConversationRepository
	inbox         domainrepo.AdminInboxRepository
	messages      domainrepo.MessageRepository
	mirror        domainrepo.UserMirrorRepository
}

func credentials(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := credentials(cfg)

	// Token verification always goes through Firebase Auth; set FIREBASE_AUTH_EMULATOR_HOST
	// to run against the emulator.
	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:   cfg.FirebaseProject,
		DatabaseURL: cfg.FirebaseDatabaseURL,
	}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	var s stores

	switch cfg.StoreBackend {
	case config.BackendFirebase:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		s.users = repository.NewFirestoreUserRepository(firestoreClient)
		s.conversations = repository.NewFirestoreConversationRepository(firestoreClient)
		s.inbox = repository.NewFirestoreAdminInboxRepository(firestoreClient)
	case config.BackendMemory:
		s.users = memory.NewUserRepository()
		s.conversations = memory.NewConversationRepository()
		s.inbox = memory.NewAdminInboxRepository()
	default:
		log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.RealtimeBackend {
	case config.BackendFirebase:
		var rtdb *db.Client
		rtdb, err = firebaseApp.Database(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Realtime Database: %v", err)
		}
		s.messages = repository.NewRTDBMessageRepository(rtdb, cfg.RTDBPollInterval)
		s.mirror = repository.NewRTDBUserMirrorRepository(rtdb)
	case config.BackendRedis:
		redisClient, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		defer redisClient.Close()

		s.messages = repository.NewRedisMessageRepository(redisClient)
		s.mirror = repository.NewRedisUserMirrorRepository(redisClient)
	case config.BackendMemory:
		s.messages = memory.NewMessageRepository()
		s.mirror = memory.NewUserMirrorRepository()
	default:
		log.Fatalf("Unknown REALTIME_BACKEND %q", cfg.RealtimeBackend)
	}

	identity := firebase.NewContextIdentity()

	chatUseCase := usecase.NewChatUseCase(s.conversations, s.messages, identity, cfg.ResubscribeDelay)
	roleUseCase := usecase.NewRoleUseCase(s.users, s.mirror, identity, cfg.BootstrapAdmin, cfg.ResubscribeDelay)
	adminChannelUseCase := usecase.NewAdminChannelUseCase(chatUseCase, roleUseCase, s.conversations, s.inbox, identity, cfg.AdminChatID)

	rateLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		usecase.ActionAsk: ratelimit.PerMinute(cfg.ChatbotPerMinute),
	})
	go rateLimiter.StartCleanupRoutine(ctx.Done())

	chatbotClient := chatbot.NewClient(cfg.ChatbotURL, cfg.ChatbotTimeout)
	chatbotUseCase := usecase.NewChatbotUseCase(chatUseCase, chatbotClient, rateLimiter, identity)

	wsManager := websocket.NewManager()

	handler.Setup(chatUseCase, adminChannelUseCase, roleUseCase, chatbotUseCase, wsManager, cfg.StoreBackend+"/"+cfg.RealtimeBackend)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebase.NewFirebaseAuthClient(authClient))
	adminMiddleware := apimiddleware.NewAdminMiddleware(roleUseCase)

	router.Setup(e, authMiddleware, adminMiddleware, apimiddleware.RateLimit(cfg.APIRatePerSecond))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsManager.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting server on port %s (store=%s realtime=%s)", cfg.ServerPort, cfg.StoreBackend, cfg.RealtimeBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
