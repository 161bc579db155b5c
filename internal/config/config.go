package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string
	Version     string
	LogLevel    string

	EncryptionSecret string // Secret for field-level encryption of inventory text

	ElasticsearchURL string // Primary search backend; empty disables it
	TypesenseURL     string // Secondary search backend; empty disables it
	TypesenseAPIKey  string
	IndexName        string // Search index / collection name

	SearchTimeout    int // Per-request search backend timeout in seconds
	ConnectRetries   int // Reconnect attempts before declaring a backend unavailable
	ReindexBatchSize int // Items fetched from the database per reindex batch
	ReindexBulkSize  int // Documents per bulk write request
	ReindexDelayMS   int // Fixed delay between bulk writes in milliseconds
	SyncQueueSize    int // Buffered capacity of the fire-and-forget sync queue
	CacheTTLSeconds  int // TTL for cached search responses
	SearchPageCap    int // Backend per-page result cap (drives the oldest-sort DB bypass)

	OpenAIKey     string // Optional: AI-assisted search keyword extraction
	OpenAITimeout int    // OpenAI API timeout in seconds

	SendGridAPIKey string // Optional: reindex report emails
	OperatorEmail  string // Recipient for reindex reports

	AdminUsername string
	AdminPassword string

	ReindexImage     string // Container image for the Kubernetes reindex job; empty runs in-process
	ReindexNamespace string // Kubernetes namespace for reindex jobs
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		EncryptionSecret: os.Getenv("ENCRYPTION_SECRET"),

		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),
		TypesenseURL:     os.Getenv("TYPESENSE_URL"),
		TypesenseAPIKey:  os.Getenv("TYPESENSE_API_KEY"),
		IndexName:        getEnv("SEARCH_INDEX_NAME", "inventory_items"),

		SearchTimeout:    getEnvInt("SEARCH_TIMEOUT", 5),
		ConnectRetries:   getEnvInt("SEARCH_CONNECT_RETRIES", 2),
		ReindexBatchSize: getEnvInt("REINDEX_BATCH_SIZE", 100),
		ReindexBulkSize:  getEnvInt("REINDEX_BULK_SIZE", 50),
		ReindexDelayMS:   getEnvInt("REINDEX_DELAY_MS", 200),
		SyncQueueSize:    getEnvInt("SYNC_QUEUE_SIZE", 256),
		CacheTTLSeconds:  getEnvInt("SEARCH_CACHE_TTL", 30),
		SearchPageCap:    getEnvInt("SEARCH_PAGE_CAP", 250),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAITimeout: getEnvInt("OPENAI_TIMEOUT", 30),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		OperatorEmail:  getEnv("OPERATOR_EMAIL", "ops@aocuoihong.vn"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		ReindexImage:     os.Getenv("REINDEX_IMAGE"),
		ReindexNamespace: getEnv("REINDEX_NAMESPACE", "rentalshop"),
	}

	return config
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	// Configure zerolog to output JSON without newlines
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Create logger with JSON output to stdout
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "rentalshop").
		Str("version", c.Version).
		Logger()

	// Set log level based on configuration
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
