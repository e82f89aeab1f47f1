package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultSeedURL = "https://s3.amazonaws.com/roxiler.com/product_transaction.json"

type Config struct {
	// HTTP Server
	Port           string
	RequestTimeout time.Duration
	MaxPerPage     int
	RateLimit      int // requests per minute per client

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Database
	MemorySeedFile  string
	SQLiteDBPath    string
	PostgresURL     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Seeding
	SeedSource   string
	SeedURL      string
	SeedTimeout  time.Duration
	SeedInterval time.Duration

	// Google Sheets seed source
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report cache
	CacheSize int
	CacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 7*time.Second),
		MaxPerPage:     getEnvInt("MAX_PER_PAGE", 100),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		MemorySeedFile:  getEnv("MEMORY_SEED_FILE", ""),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/txreport.db"),
		PostgresURL:     getEnv("POSTGRES_URL", ""),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "mern_stack_challenge"),
		MongoCollection: getEnv("MONGO_COLLECTION", "transactions"),

		SeedSource:   getEnv("SEED_SOURCE", "http"),
		SeedURL:      getEnv("SEED_URL", DefaultSeedURL),
		SeedTimeout:  getEnvDuration("SEED_TIMEOUT", 30*time.Second),
		SeedInterval: getEnvDuration("SEED_INTERVAL", 0),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "txreport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "seed_requests"),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "postgres", "mongo"}
	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("invalid POSTGRES_URL '%s': scheme must be 'postgres' or 'postgresql'", c.PostgresURL))
		}
	case "mongo":
		if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MONGO_URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI))
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errors = append(errors, "MONGO_DATABASE and MONGO_COLLECTION cannot be empty when using mongo backend")
		}
	}

	validSources := []string{"http", "sheets"}
	if !oneOf(c.SeedSource, validSources) {
		errors = append(errors, fmt.Sprintf("invalid seed source '%s': must be one of %v", c.SeedSource, validSources))
	}
	if c.SeedSource == "http" {
		if u, err := url.Parse(c.SeedURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid SEED_URL '%s': must be an absolute http(s) URL", c.SeedURL))
		}
	}
	if c.SeedSource == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets seed source")
	}
	if c.SeedTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid seed timeout %v: must be positive", c.SeedTimeout))
	}
	if c.SeedInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid seed interval %v: must not be negative", c.SeedInterval))
	} else if c.SeedInterval > 0 && c.SeedInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid seed interval %v: must be at least 1 minute", c.SeedInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	}
	if c.MaxPerPage < 1 {
		errors = append(errors, fmt.Sprintf("invalid max per page %d: must be at least 1", c.MaxPerPage))
	}
	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimit))
	}
	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}

	if !oneOf(strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if !oneOf(strings.ToLower(c.LogFormat), []string{"text", "json"}) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DurableBackend reports whether data survives a restart and is shared
// between processes.
func (c *Config) DurableBackend() bool {
	return c.DataBackend != "memory"
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
