package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	telegoBot "feedbackbot/bot"
	"feedbackbot/internal/auth"
	"feedbackbot/internal/config"
	"feedbackbot/internal/database"
	"feedbackbot/internal/forms"
	"feedbackbot/internal/handlers"
	"feedbackbot/internal/locales"
	"feedbackbot/internal/logger"
	"feedbackbot/internal/metrics"
	"feedbackbot/internal/session"

	sentry "github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	redisFeedbackPrefix = "feedbackbot:"
	redisSessionPrefix  = "feedbackbot:session:"
)

// stores bundles the persistent and ephemeral stores with their connections.
type stores struct {
	feedback database.Store
	session  database.Store
	redis    *redis.Client
	mongo    *mongo.Client
}

func (s *stores) close() {
	log := logger.GetLogger()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warnw("Error closing Redis client", "error", err)
		}
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongo.Disconnect(ctx); err != nil {
			log.Warnw("Error disconnecting from MongoDB", "error", err)
			sentry.CaptureException(err)
		} else {
			log.Info("Disconnected from MongoDB.")
		}
	}
}

// openStores builds the feedback and session stores selected in cfg.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	if cfg.NeedsRedis() {
		client, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = client
	}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		s.feedback = database.NewMemoryStore()
	case config.BackendFile:
		fs, err := database.NewFileStore(cfg.StorageDir)
		if err != nil {
			s.close()
			return nil, err
		}
		s.feedback = fs
	case config.BackendRedis:
		s.feedback = database.NewRedisStore(s.redis, redisFeedbackPrefix, 0)
	case config.BackendMongo:
		client, db, err := database.ConnectDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)
		if err != nil {
			s.close()
			return nil, err
		}
		s.mongo = client
		s.feedback = database.NewMongoStore(db)
	default:
		s.close()
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if cfg.SessionBackend == config.BackendRedis {
		s.session = database.NewRedisStore(s.redis, redisSessionPrefix, cfg.SessionTTL)
	} else {
		s.session = database.NewMemoryStore()
	}
	return s, nil
}

// newChecker combines the chat-admin check and the static allow list.
func newChecker(cfg *config.Config, bot auth.ChatMemberGetter) (auth.Checker, error) {
	var checkers auth.AnyChecker
	if cfg.AdminChatID != 0 {
		adminChecker, err := auth.NewAdminChecker(bot, cfg.AdminChatID)
		if err != nil {
			return nil, err
		}
		checkers = append(checkers, adminChecker)
	}
	if len(cfg.AdminUserIDs) > 0 {
		checkers = append(checkers, auth.NewStaticChecker(cfg.AdminUserIDs...))
	}
	return checkers, nil
}

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := locales.Init(cfg.DefaultLanguage); err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer st.close()

	repo := database.NewFeedbackRepository(st.feedback, nil)
	loaded := repo.Load(ctx)
	log.Infow("Feedback loaded", "backend", cfg.StorageBackend, "records", len(loaded))

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Errorw("Metrics server stopped", "error", err)
				sentry.CaptureException(err)
			}
		}()
	}

	// --- Bot Initialization ---
	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	checker, err := newChecker(cfg, bot)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}

	messageHandler := handlers.NewMessageHandler(repo, forms.NewManager(), session.NewGate(st.session), checker)
	if err := messageHandler.SetupCommands(ctx, bot); err != nil {
		log.Warnf("Failed to register commands: %v", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Handler:     messageHandler,
		RateLimit:   cfg.RateLimit,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Start blocks until the context is cancelled (SIGINT, SIGTERM) and all
	// in-flight updates are done.
	appBot.Start(ctx)
	log.Info("Bot shutdown complete.")
}
