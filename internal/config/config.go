package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// MongoDB
	MongoURI     string
	MongoUser    string
	MongoPwd     string
	MongoHost    string
	DBName       string
	StoreBackend string // "mongo" (default) or "memory"

	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Admin API
	AdminJWTSecret string

	// Embeddings configuration
	EmbeddingsProvider    string // "tei" (default), "google"
	TEIURL                string
	TEIModel              string
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	VectorDimensions      int
	EmbedWorkers          int
	EmbedRPS              float64
	EmbedCacheTTL         time.Duration

	// MongoDB Vector Search
	VectorIndexName   string
	IndexDropPolicy   string // "best_effort" or "strict"
	IndexSettleDelay  time.Duration
	IndexPollInterval time.Duration
	IndexReadyTimeout time.Duration
	SearchMaxLimit    int

	// Re-embedding
	ReembedWorkers      int
	ReembedBackfillCron string

	// Agent platform
	AgentBaseURL      string
	AgentTimeout      time.Duration
	AgentWaitForData  int
	ChatSessionTTL    time.Duration
	ChatHistoryLength int

	// Telemetry
	OTelEndpoint    string
	OTelSampleRatio float64
	ServiceName     string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", ""),
		MongoUser:    getEnv("MONGO_USER", ""),
		MongoPwd:     getEnv("MONGO_PWD", ""),
		MongoHost:    getEnv("MONGO_HOST", ""),
		DBName:       getEnv("DB_NAME", "ai_tutor_db"),
		StoreBackend: getEnv("STORE_BACKEND", "mongo"),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501"), ","),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		// Embeddings
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "tei"),
		TEIURL:                getEnv("TEI_URL", "http://localhost:8081"),
		TEIModel:              getEnv("TEI_MODEL", "BAAI/bge-large-en-v1.5"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		VectorDimensions:      getEnvInt("VECTOR_DIM", 1024),
		EmbedWorkers:          getEnvInt("EMBED_WORKERS", 4),
		EmbedRPS:              getEnvFloat64("EMBED_RPS", 20),
		EmbedCacheTTL:         getEnvDuration("EMBED_CACHE_TTL", 7*24*time.Hour),

		// MongoDB Vector Search
		VectorIndexName:   getEnv("MONGODB_VECTOR_INDEX", "vector_index"),
		IndexDropPolicy:   getEnv("INDEX_DROP_POLICY", "best_effort"),
		IndexSettleDelay:  getEnvDuration("INDEX_SETTLE_DELAY", 2*time.Second),
		IndexPollInterval: getEnvDuration("INDEX_POLL_INTERVAL", time.Second),
		IndexReadyTimeout: getEnvDuration("INDEX_READY_TIMEOUT", 5*time.Minute),
		SearchMaxLimit:    getEnvInt("SEARCH_MAX_LIMIT", 50),

		ReembedWorkers:      getEnvInt("REEMBED_WORKERS", 4),
		ReembedBackfillCron: getEnv("REEMBED_BACKFILL_CRON", "*/30 * * * *"),

		// Agent platform
		AgentBaseURL:      getEnv("AGENT_BASE_URL", "http://localhost:8800"),
		AgentTimeout:      getEnvDuration("AGENT_TIMEOUT", 90*time.Second),
		AgentWaitForData:  getEnvInt("AGENT_WAIT_FOR_DATA", 60),
		ChatSessionTTL:    getEnvDuration("CHAT_SESSION_TTL", 24*time.Hour),
		ChatHistoryLength: getEnvInt("CHAT_HISTORY_LENGTH", 200),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),
		ServiceName:     getEnv("SERVICE_NAME", "ai-tutor-backend"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants LoadConfig cannot express through defaults.
func (c *Config) Validate() error {
	if c.StoreBackend != "mongo" && c.StoreBackend != "memory" {
		return fmt.Errorf("STORE_BACKEND must be 'mongo' or 'memory', got %q", c.StoreBackend)
	}
	if c.StoreBackend == "mongo" && c.MongoURI == "" && (c.MongoUser == "" || c.MongoHost == "") {
		return fmt.Errorf("MONGO_URI or MONGO_USER/MONGO_PWD/MONGO_HOST is required - set it in .env file")
	}
	if c.VectorDimensions <= 0 {
		return fmt.Errorf("VECTOR_DIM must be positive")
	}
	if c.IndexDropPolicy != "best_effort" && c.IndexDropPolicy != "strict" {
		return fmt.Errorf("INDEX_DROP_POLICY must be 'best_effort' or 'strict', got %q", c.IndexDropPolicy)
	}
	if c.EmbeddingsProvider == "google" && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for the google embeddings provider")
	}
	if c.SearchMaxLimit <= 0 {
		return fmt.Errorf("SEARCH_MAX_LIMIT must be positive")
	}
	return nil
}

// ConnectionURI returns the MongoDB URI, assembling the Atlas SRV form from
// MONGO_USER/MONGO_PWD/MONGO_HOST when MONGO_URI is not set.
func (c *Config) ConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.MongoUser, c.MongoPwd),
		Host:     c.MongoHost,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority&appName=" + url.QueryEscape(c.ServiceName),
	}
	return u.String()
}

// RedactedMongoURI is safe to log: credentials are replaced.
func (c *Config) RedactedMongoURI() string {
	u, err := url.Parse(c.ConnectionURI())
	if err != nil {
		return "<unparseable mongo uri>"
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
