package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"feedbackbot/internal/logger"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND and SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	AppEnv          string
	Debug           bool
	Version         string
	BotToken        string
	DefaultLanguage string
	SentryDSN       string

	// AdminChatID is the chat whose administrators may open the dashboard.
	AdminChatID int64
	// AdminUserIDs are users allowed to open the dashboard regardless of chat membership.
	AdminUserIDs []int64

	StorageBackend  string
	StorageDir      string
	RedisURL        string
	MongoDBURI      string
	MongoDBDatabase string

	SessionBackend string
	SessionTTL     time.Duration

	MetricsAddr string
	// RateLimit is the number of updates processed per second.
	RateLimit int
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Info("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment only.
func FromEnv() (*Config, error) {
	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	adminChatID, err := parseInt64("ADMIN_CHAT_ID")
	if err != nil {
		return nil, err
	}

	adminUserIDs, err := parseIDList("ADMIN_USER_IDS")
	if err != nil {
		return nil, err
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT", "20"))
	if err != nil || rateLimit <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT %q: must be a positive integer", getEnv("RATE_LIMIT", ""))
	}

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Debug:           debug,
		Version:         getEnv("VERSION", "dev"),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		AdminChatID:     adminChatID,
		AdminUserIDs:    adminUserIDs,
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		StorageDir:      getEnv("STORAGE_DIR", "data"),
		RedisURL:        getEnv("REDIS_URL", ""),
		MongoDBURI:      getEnv("MONGODB_URI", ""),
		MongoDBDatabase: getEnv("MONGODB_DATABASE", ""),
		SessionBackend:  strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		SessionTTL:      sessionTTL,
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		RateLimit:       rateLimit,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SentryDSN == "" {
		logger.GetLogger().Warn("SENTRY_DSN is not set. Error tracking disabled.")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.AdminChatID == 0 && len(c.AdminUserIDs) == 0 {
		return fmt.Errorf("ADMIN_CHAT_ID or ADMIN_USER_IDS is required")
	}

	switch c.StorageBackend {
	case BackendMemory:
		logger.GetLogger().Warn("STORAGE_BACKEND=memory: feedback will not survive a restart")
	case BackendFile:
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the file backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
		if c.MongoDBDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis sessions")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// NeedsRedis reports whether any component is backed by Redis.
func (c *Config) NeedsRedis() bool {
	return c.StorageBackend == BackendRedis || c.SessionBackend == BackendRedis
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt64(key string) (int64, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseIDList reads a comma separated list of user IDs.
func parseIDList(key string) ([]int64, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
