package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/config"
	"github.com/benvon/excuse-deck/internal/database"
	"github.com/benvon/excuse-deck/internal/deck"
	"github.com/benvon/excuse-deck/internal/handlers"
	"github.com/benvon/excuse-deck/internal/logger"
	"github.com/benvon/excuse-deck/internal/middleware"
	"github.com/benvon/excuse-deck/internal/queue"
	"github.com/benvon/excuse-deck/internal/services/excuse"
	"github.com/benvon/excuse-deck/internal/session"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/benvon/excuse-deck/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "excuse-deck"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging, including excuse prompts")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger("server", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("calendar_source", cfg.CalendarSource),
		zap.String("excuse_provider", cfg.ExcuseProvider),
		zap.String("decision_store", cfg.DecisionStore),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracing := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, telemetry.Config{
				ServiceName:    serviceName,
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
				Insecure:       true,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracing = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	healthChecker := handlers.NewHealthChecker(version)

	oauth, source := buildCalendar(cfg, zapLogger)
	excuses := buildExcuses(cfg, zapLogger, debugMode)

	decisions, redisClient, closeStore := buildStore(ctx, cfg, healthChecker, zapLogger)
	defer closeStore()

	// Decision events are optional for the server; the worker consumes them
	var eventQueue *queue.RabbitMQQueue
	if cfg.RabbitMQURL != "" {
		eventQueue = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := eventQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		decisions = store.NewPublishingStore(decisions, eventQueue, zapLogger)
		healthChecker.AddCheck("rabbitmq", eventQueue.HealthCheck)

		gc := queue.NewGarbageCollector(eventQueue, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
		go func() {
			if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", cfg.DLQGCInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	sessions := session.NewManager(func(id string) *deck.Machine {
		return deck.New(source, store.Bind(decisions, id), excuses,
			deck.WithLogger(zapLogger.With(zap.String("session", logger.HashSessionID(id)))),
			deck.WithThinkingDelay(cfg.ThinkingDelay),
		)
	}, cfg.SessionIdleTimeout, session.WithLogger(zapLogger))
	defer sessions.Close()
	go func() {
		if err := sessions.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("session_evictor_stopped_with_error", zap.Error(err))
		}
	}()

	signer := session.NewSigner([]byte(cfg.SessionSecret), cfg.SessionTTL)

	limiterStore := middleware.NewRateLimitStore(ctx, redisClient, zapLogger)
	excuseRateLimit, err := middleware.RateLimit(limiterStore, cfg.ExcuseRateLimit)
	if err != nil {
		zapLogger.Fatal("invalid_excuse_rate_limit", zap.Error(err))
	}

	calendarHandler := handlers.NewCalendarHandler(oauth, source, cfg.FrontendURL, cfg.SecureCookies, zapLogger)
	deckHandler := handlers.NewDeckHandler(sessions, cfg.SecureCookies, zapLogger)
	decisionHandler := handlers.NewDecisionHandler(decisions, zapLogger)
	excuseHandler := handlers.NewExcuseHandler(excuses, zapLogger)

	// gorilla/mux runs middleware in registration order: the first Use is outermost
	r := mux.NewRouter()
	if tracing {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins, zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	healthChecker.RegisterRoutes(r)
	calendarHandler.RegisterCallback(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Sessions(signer, cfg.SecureCookies, zapLogger))
	api.Use(middleware.Audit(zapLogger))
	calendarHandler.RegisterRoutes(api)
	deckHandler.RegisterRoutes(api)
	decisionHandler.RegisterRoutes(api)

	excuseRouter := api.PathPrefix("").Subrouter()
	excuseRouter.Use(excuseRateLimit)
	excuseHandler.RegisterRoutes(excuseRouter)

	// preflight requests are answered by the CORS middleware; this only gives them a route
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// above the request timeout so its 503 still reaches the client
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// buildCalendar returns the configured event source and, for Google, the OAuth client
func buildCalendar(cfg *config.Config, zapLogger *zap.Logger) (*calendar.OAuth, calendar.Source) {
	switch cfg.CalendarSource {
	case config.CalendarGoogle:
		oauth := calendar.NewOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
		return oauth, calendar.NewGoogleSource(oauth, zapLogger, calendar.WithCalendarID(cfg.GoogleCalendarID))
	case config.CalendarICS:
		return nil, calendar.NewICSSource(cfg.ICSURL, nil, zapLogger)
	default:
		return nil, calendar.NewMockSource()
	}
}

// buildExcuses creates the excuse service. A remote provider that cannot be
// built leaves the service on the local phrase tables.
func buildExcuses(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) *excuse.Service {
	local := excuse.NewLocalGenerator()
	if cfg.ExcusePhrasesFile != "" {
		phrases, err := excuse.LoadPhrases(cfg.ExcusePhrasesFile)
		if err != nil {
			zapLogger.Warn("failed_to_load_excuse_phrases", zap.String("path", cfg.ExcusePhrasesFile), zap.Error(err))
		} else {
			local = excuse.NewLocalGeneratorWithPhrases(phrases, nil)
		}
	}

	var remote excuse.Generator
	if cfg.ExcuseProvider != config.ExcuseLocal {
		registry := excuse.NewRegistry()
		excuse.RegisterDefaults(registry, zapLogger, debugMode)
		g, err := registry.Build(cfg.ExcuseProvider, map[string]string{
			"api_key":  cfg.OpenAIKey,
			"base_url": cfg.AIBaseURL,
			"model":    cfg.AIModel,
			"url":      cfg.ExcuseEndpointURL,
		})
		if err != nil {
			zapLogger.Warn("failed_to_create_excuse_provider_using_local_excuses", zap.Error(err))
		} else {
			remote = g
		}
	}

	return excuse.NewService(remote, local, cfg.ExcuseTimeout, zapLogger)
}

// buildStore opens the decision store. The returned Redis client, if any, is
// shared with the rate limiter.
func buildStore(ctx context.Context, cfg *config.Config, health *handlers.HealthChecker, zapLogger *zap.Logger) (store.DecisionStore, *redis.Client, func()) {
	switch cfg.DecisionStore {
	case config.StoreRedis:
		s, err := store.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.DecisionTTL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		zapLogger.Info("connected_to_redis")
		health.AddCheck("redis", func(ctx context.Context) error { return s.Client().Ping(ctx).Err() })
		return s, s.Client(), func() {
			if err := s.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}

	case config.StorePostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		if err := database.Migrate(ctx, db); err != nil {
			zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
		}
		zapLogger.Info("connected_to_database")
		health.AddCheck("database", db.HealthCheck)

		client := optionalRedis(cfg.RedisURL, zapLogger)
		return database.NewDecisionRepository(db), client, func() {
			if client != nil {
				_ = client.Close()
			}
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}

	default:
		s := store.NewMemoryStore()
		client := optionalRedis(cfg.RedisURL, zapLogger)
		return s, client, func() {
			if client != nil {
				_ = client.Close()
			}
			_ = s.Close()
		}
	}
}

// optionalRedis returns a client for the rate limiter; the limiter pings it
// and falls back to memory when it is unreachable
func optionalRedis(redisURL string, zapLogger *zap.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		zapLogger.Warn("invalid_redis_url", zap.Error(err))
		return nil
	}
	return redis.NewClient(opt)
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
func connectRabbitMQ(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(fmt.Errorf("giving up: %w", lastErr)),
	)
	return nil
}
