package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Calendar sources
const (
	CalendarGoogle = "google"
	CalendarICS    = "ics"
	CalendarMock   = "mock"
)

// Excuse providers
const (
	ExcuseOpenAI   = "openai"
	ExcuseEndpoint = "endpoint"
	ExcuseLocal    = "local"
)

// Decision store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	BaseURL         string
	FrontendURL     string
	AllowedOrigins  []string
	EnableHSTS      bool
	SecureCookies   bool
	ServerDebugMode bool
	WorkerDebugMode bool

	SessionSecret      string
	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration

	CalendarSource     string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleCalendarID   string
	ICSURL             string

	ExcuseProvider    string
	OpenAIKey         string
	AIModel           string
	AIBaseURL         string
	ExcuseEndpointURL string
	ExcuseTimeout     time.Duration
	ExcusePhrasesFile string
	ExcuseRateLimit   string

	ThinkingDelay  time.Duration
	RequestTimeout time.Duration

	DecisionStore string
	DecisionTTL   time.Duration
	DatabaseURL   string
	RedisURL      string

	RabbitMQURL      string
	RabbitMQPrefetch int
	DLQRetention     time.Duration
	DLQGCInterval    time.Duration

	OTELEnabled  bool
	OTELEndpoint string
}

// LoadDotEnv reads a .env file into the environment if one exists. Variables
// already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return load(os.Getenv)
}

// lookup reads one variable; os.Getenv in production, a map in tests
type lookup func(string) string

func load(get lookup) (*Config, error) {
	baseURL := getEnv(get, "BASE_URL", "http://localhost:8080")
	frontendURL := getEnv(get, "FRONTEND_URL", "http://localhost:3000")
	googleID := getEnv(get, "GOOGLE_CLIENT_ID", "")
	openAIKey := getEnv(get, "OPENAI_API_KEY", "")

	defaultCalendar := CalendarMock
	if googleID != "" {
		defaultCalendar = CalendarGoogle
	}
	defaultProvider := ExcuseLocal
	if openAIKey != "" {
		defaultProvider = ExcuseOpenAI
	}

	cfg := &Config{
		ServerPort:      getEnv(get, "SERVER_PORT", "8080"),
		BaseURL:         baseURL,
		FrontendURL:     frontendURL,
		AllowedOrigins:  getEnvList(get, "CORS_ALLOWED_ORIGINS", []string{frontendURL}),
		EnableHSTS:      getEnvBool(get, "ENABLE_HSTS", false),
		SecureCookies:   getEnvBool(get, "COOKIE_SECURE", strings.HasPrefix(baseURL, "https://")),
		ServerDebugMode: getEnvBool(get, "SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool(get, "WORKER_DEBUG_MODE", false),

		SessionSecret:      getEnv(get, "SESSION_SECRET", ""),
		SessionTTL:         getEnvDuration(get, "SESSION_TTL", 30*24*time.Hour),
		SessionIdleTimeout: getEnvDuration(get, "SESSION_IDLE_TIMEOUT", 30*time.Minute),

		CalendarSource:     strings.ToLower(getEnv(get, "CALENDAR_SOURCE", defaultCalendar)),
		GoogleClientID:     googleID,
		GoogleClientSecret: getEnv(get, "GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv(get, "GOOGLE_REDIRECT_URI", strings.TrimRight(baseURL, "/")+"/api/auth/callback/google"),
		GoogleCalendarID:   getEnv(get, "GOOGLE_CALENDAR_ID", "primary"),
		ICSURL:             getEnv(get, "CALENDAR_ICS_URL", ""),

		ExcuseProvider:    strings.ToLower(getEnv(get, "EXCUSE_PROVIDER", defaultProvider)),
		OpenAIKey:         openAIKey,
		AIModel:           getEnv(get, "AI_MODEL", ""),
		AIBaseURL:         getEnv(get, "AI_BASE_URL", ""),
		ExcuseEndpointURL: getEnv(get, "EXCUSE_ENDPOINT_URL", ""),
		ExcuseTimeout:     getEnvDuration(get, "EXCUSE_TIMEOUT", 8*time.Second),
		ExcusePhrasesFile: getEnv(get, "EXCUSE_PHRASES_FILE", ""),
		ExcuseRateLimit:   getEnv(get, "EXCUSE_RATE_LIMIT", "20-M"),

		ThinkingDelay:  getEnvDuration(get, "DECK_THINKING_DELAY", 1200*time.Millisecond),
		RequestTimeout: getEnvDuration(get, "REQUEST_TIMEOUT", 0),

		DecisionStore: strings.ToLower(getEnv(get, "DECISION_STORE", StoreMemory)),
		DecisionTTL:   getEnvDuration(get, "DECISION_TTL", 0),
		DatabaseURL:   getEnv(get, "DATABASE_URL", ""),
		RedisURL:      getEnv(get, "REDIS_URL", "redis://localhost:6379/0"),

		RabbitMQURL:      getEnv(get, "RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt(get, "RABBITMQ_PREFETCH", 1),
		DLQRetention:     getEnvDuration(get, "DLQ_RETENTION", 7*24*time.Hour),
		DLQGCInterval:    getEnvDuration(get, "DLQ_GC_INTERVAL", time.Hour),

		OTELEnabled:  getEnvBool(get, "OTEL_ENABLED", false),
		OTELEndpoint: getEnv(get, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = cfg.ExcuseWait() + requestTimeoutMargin
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requestTimeoutMargin is added to ExcuseWait for the default REQUEST_TIMEOUT
const requestTimeoutMargin = 10 * time.Second

// ExcuseWait is the longest a deck request with wait=true blocks on an excuse
func (c *Config) ExcuseWait() time.Duration {
	return c.ExcuseTimeout + c.ThinkingDelay
}

func (c *Config) validate() error {
	switch c.CalendarSource {
	case CalendarGoogle:
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the google calendar source")
		}
	case CalendarICS:
		if c.ICSURL == "" {
			return fmt.Errorf("CALENDAR_ICS_URL is required for the ics calendar source")
		}
	case CalendarMock:
	default:
		return fmt.Errorf("unknown CALENDAR_SOURCE %q", c.CalendarSource)
	}

	switch c.ExcuseProvider {
	case ExcuseOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai excuse provider")
		}
	case ExcuseEndpoint:
		if c.ExcuseEndpointURL == "" {
			return fmt.Errorf("EXCUSE_ENDPOINT_URL is required for the endpoint excuse provider")
		}
	case ExcuseLocal:
	default:
		return fmt.Errorf("unknown EXCUSE_PROVIDER %q", c.ExcuseProvider)
	}

	switch c.DecisionStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres decision store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis decision store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown DECISION_STORE %q", c.DecisionStore)
	}

	if c.ExcuseTimeout <= 0 {
		return fmt.Errorf("EXCUSE_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= c.ExcuseWait() {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed EXCUSE_TIMEOUT plus DECK_THINKING_DELAY (%s)", c.RequestTimeout, c.ExcuseWait())
	}
	return nil
}

// ValidateServer checks settings only the HTTP server needs
func (c *Config) ValidateServer() error {
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET is required and must be at least 32 characters")
	}
	return nil
}

// ValidateWorker checks settings only the worker needs
func (c *Config) ValidateWorker() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the decision worker")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the decision worker")
	}
	return nil
}

func getEnv(get lookup, key, defaultValue string) string {
	if value := get(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(get lookup, key string, defaultValue bool) bool {
	if value := get(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(get lookup, key string, defaultValue int) int {
	if value := get(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(get lookup, key string, defaultValue time.Duration) time.Duration {
	if value := get(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(get lookup, key string, defaultValue []string) []string {
	value := get(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
