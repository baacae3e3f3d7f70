package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// LLM (Groq or any OpenAI-compatible endpoint)
	LLMBaseURL  string
	LLMModel    string
	LLMAPIKey   string
	Temperature float32
	MaxTokens   int
	GenTimeout  time.Duration

	// Embeddings
	EmbeddingBaseURL string
	EmbeddingModel   string
	VectorSize       int

	// Retrieval
	SearchK        int
	FinalK         int
	ScoreThreshold float32
	ContextBudget  int

	// Storage / index
	DBPath           string
	IndexPath        string
	IndexBackend     string // "flat" or "qdrant"
	QdrantURL        string
	QdrantCollection string

	// Server
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded first; variables already set in the environment take precedence.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:         getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMAPIKey:        getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081/v1"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		DBPath:           getEnv("DB_PATH", "./data/healthrag.db"),
		IndexPath:        getEnv("INDEX_PATH", "./data/vector_index.gob"),
		IndexBackend:     getEnv("INDEX_BACKEND", "flat"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "health_chunks"),
		APIPort:          getEnv("API_PORT", "5000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 384); err != nil {
		return nil, err
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	if cfg.SearchK, err = getEnvInt("SEARCH_K", 15); err != nil {
		return nil, err
	}
	if cfg.FinalK, err = getEnvInt("FINAL_K", 5); err != nil {
		return nil, err
	}
	if cfg.FinalK > cfg.SearchK {
		return nil, fmt.Errorf("FINAL_K (%d) must not exceed SEARCH_K (%d)", cfg.FinalK, cfg.SearchK)
	}
	if cfg.MaxTokens, err = getEnvInt("MAX_TOKENS", 1000); err != nil {
		return nil, err
	}
	if cfg.ContextBudget, err = getEnvInt("CONTEXT_BUDGET", 6000); err != nil {
		return nil, err
	}
	if cfg.ContextBudget <= 0 {
		return nil, fmt.Errorf("CONTEXT_BUDGET must be greater than 0")
	}

	threshold, err := getEnvFloat("SCORE_THRESHOLD", 0.25)
	if err != nil {
		return nil, err
	}
	cfg.ScoreThreshold = float32(threshold)

	temperature, err := getEnvFloat("TEMPERATURE", 0.3)
	if err != nil {
		return nil, err
	}
	if temperature < 0 || temperature > 1 {
		return nil, fmt.Errorf("TEMPERATURE must be between 0 and 1")
	}
	cfg.Temperature = float32(temperature)

	genTimeoutSec, err := getEnvInt("GEN_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.GenTimeout = time.Duration(genTimeoutSec) * time.Second

	switch backend := cfg.IndexBackend; backend {
	case "flat", "qdrant":
	default:
		return nil, fmt.Errorf("INDEX_BACKEND must be \"flat\" or \"qdrant\", got %q", backend)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Create the data directory if it doesn't exist (DB and index snapshot live there)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// EncoderTag identifies the embedding model and dimension used to build the
// vector index. A snapshot built with a different tag must not be served.
func (c *Config) EncoderTag() string {
	return fmt.Sprintf("%s/%d", c.EmbeddingModel, c.VectorSize)
}

// loadDotEnv loads a .env file from the current directory or the nearest
// ancestor that has one. Missing files are not an error.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}
