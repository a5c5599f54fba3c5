package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload handling
	UploadDir   string
	MaxFileSize int64

	// Chunking defaults (overridable per build_kb request)
	ChunkSize    int
	ChunkOverlap int

	// Vector store
	CollectionName  string
	UpsertBatchSize int
	DefaultTopK     int

	// Embeddings
	GeminiAPIKey    string
	EmbeddingsModel string
	GeminiTier      string

	// Redis embedding cache (optional; empty URL disables it)
	RedisURL      string
	RedisPassword string
	RedisDB       int
	EmbedCacheTTL int // seconds

	// Script synthesis
	ScriptTargetURL string

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/qa_agent"),
		DBName:      getEnv("DB_NAME", "qa_agent"),
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501"), ","),

		UploadDir:   getEnv("UPLOAD_DIR", "./uploaded_assets"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 20971520), // 20MB per document

		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		CollectionName:  getEnv("COLLECTION_NAME", "qa_agent_docs"),
		UpsertBatchSize: getEnvInt("UPSERT_BATCH_SIZE", 64),
		DefaultTopK:     getEnvInt("DEFAULT_TOP_K", 5),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EmbedCacheTTL: getEnvInt("EMBED_CACHE_TTL", 3600),

		ScriptTargetURL: getEnv("SCRIPT_TARGET_URL", "http://example.com/checkout"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate chunking configuration up front: a bad default would make
	// every build_kb call fail with a configuration error.
	if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("invalid chunk configuration: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}

	if cfg.UpsertBatchSize <= 0 {
		return nil, fmt.Errorf("UPSERT_BATCH_SIZE must be positive, got %d", cfg.UpsertBatchSize)
	}

	return cfg, nil
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
