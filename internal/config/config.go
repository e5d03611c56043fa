// Package config provides configuration for the discussion service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	DatabaseURL string

	// Discussion limits
	ModelTimeout      time.Duration
	StreamIdleTimeout time.Duration
	SessionTimeout    time.Duration
	MaxRounds         int
	MaxParticipants   int
	FailOnSilentRound bool

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	OutboxSize     int
	// InboundRate is the sustained inbound frame rate per connection.
	InboundRate float64

	// Auth settings
	APIKey        string // Static key for websocket api_key validation
	EncryptionKey string

	// Provider settings, keyed by vendor
	ProviderKeys     map[string]string
	ProviderBaseURLs map[string]string

	// Catalog and policy files, empty for built-in defaults
	ModelCatalogPath string
	PolicyPath       string

	// Mode is GOGO_MODE; MOCK swaps every provider for a local mock.
	Mode string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "debate.db"),
		ModelTimeout:      time.Duration(getEnvInt("MODEL_TIMEOUT_MS", 120000)) * time.Millisecond,
		StreamIdleTimeout: time.Duration(getEnvInt("STREAM_IDLE_TIMEOUT_MS", 60000)) * time.Millisecond,
		SessionTimeout:    time.Duration(getEnvInt("SESSION_TIMEOUT_MS", 1800000)) * time.Millisecond,
		MaxRounds:         getEnvInt("MAX_ROUNDS", 10),
		MaxParticipants:   getEnvInt("MAX_PARTICIPANTS", 6),
		FailOnSilentRound: getEnvBool("FAIL_ON_SILENT_ROUND", false),
		PingInterval:      time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:      time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:       time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:    int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		OutboxSize:        getEnvInt("WS_OUTBOX_SIZE", 256),
		InboundRate:       getEnvFloat("WS_INBOUND_RATE", 5),
		APIKey:            getEnv("API_KEY", ""),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),
		ProviderKeys:      make(map[string]string),
		ProviderBaseURLs:  make(map[string]string),
		ModelCatalogPath:  getEnv("MODEL_CATALOG_PATH", ""),
		PolicyPath:        getEnv("POLICY_PATH", ""),
		Mode:              getEnv(llm.EnvGogoMode, ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	for _, vendor := range llm.Vendors {
		prefix := strings.ToUpper(vendor)
		if key := getEnv(prefix+"_API_KEY", ""); key != "" {
			cfg.ProviderKeys[vendor] = key
		}
		if url := getEnv(prefix+"_BASE_URL", ""); url != "" {
			cfg.ProviderBaseURLs[vendor] = url
		}
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
