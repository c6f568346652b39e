package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Telegram delivery
	Telegram TelegramConfig

	// Kafka notification pipeline
	Kafka KafkaConfig

	// Waitlist policy
	Waitlist WaitlistConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds the SQLite store configuration
type DatabaseConfig struct {
	Path string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL values for cached reads
	PositionTTL time.Duration
	StatsTTL    time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// TelegramConfig holds settings for the Telegram notifier
type TelegramConfig struct {
	Enabled  bool
	BotToken string
}

// KafkaConfig holds settings for the async notification dispatcher.
// When disabled, notifications are delivered in-process.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
	Workers int
}

// WaitlistConfig holds the admission/waitlist policy knobs
type WaitlistConfig struct {
	// ConfirmWindow is how long a notified user has to claim a freed slot.
	ConfirmWindow time.Duration
	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration
	// DemoteReinsert picks where a demoted participant re-enters the queue:
	// "front" or "back".
	DemoteReinsert string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	RegistrationReqs int           `json:"registration_requests"`
	TransferReqs     int           `json:"transfer_requests"`
	AdminRequests    int           `json:"admin_requests"`
	HealthRequests   int           `json:"health_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

const (
	DemoteReinsertFront = "front"
	DemoteReinsertBack  = "back"
)

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "raceday.db"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			PositionTTL: getDurationEnv("REDIS_POSITION_TTL", 1*time.Minute),
			StatsTTL:    getDurationEnv("REDIS_STATS_TTL", 5*time.Minute),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-me-before-race-day"),
			JWTExpiresIn: getDurationEnvSeconds("JWT_EXPIRES_IN", 24*time.Hour),
		},

		// Telegram delivery
		Telegram: TelegramConfig{
			Enabled:  getBoolEnv("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},

		// Kafka notification pipeline
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "raceday-notifications"),
			GroupID: getEnv("KAFKA_CONSUMER_GROUP_ID", "raceday-notification-workers"),
			Workers: getIntEnv("KAFKA_CONSUMER_WORKERS", 3),
		},

		// Waitlist policy
		Waitlist: WaitlistConfig{
			ConfirmWindow:  getDurationEnv("WAITLIST_CONFIRM_WINDOW", 24*time.Hour),
			SweepInterval:  getDurationEnv("WAITLIST_SWEEP_INTERVAL", 1*time.Minute),
			DemoteReinsert: getEnv("WAITLIST_DEMOTE_REINSERT", DemoteReinsertFront),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			RegistrationReqs: getIntEnv("RATE_LIMIT_REGISTRATION_REQUESTS", 20),
			TransferReqs:     getIntEnv("RATE_LIMIT_TRANSFER_REQUESTS", 30),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 120),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	if cfg.Waitlist.DemoteReinsert != DemoteReinsertBack {
		cfg.Waitlist.DemoteReinsert = DemoteReinsertFront
	}

	return cfg
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
