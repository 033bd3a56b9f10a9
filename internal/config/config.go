package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Storage layout
	StorageDir string // Root for scenes/, export_jobs/, videos/, exports/
	TempDir    string // Scratch space for render and export intermediates

	// AI provider
	AIProvider    string // "openai" or "gemini"
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string // Optional: Azure/compatible endpoint override
	GeminiKey     string
	GeminiModel   string

	// Renderer
	ManimBinary   string
	RenderTimeout time.Duration

	// Export
	FFmpegBinary  string
	FFprobeBinary string
	FFmpegTimeout time.Duration

	// Queue
	QueueBackend string // "memory" (default) or "redis"
	RedisURL     string

	// Worker
	WorkerEnabled bool
	WorkerCount   int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		StorageDir:         getEnv("STORAGE_DIR", "storage"),
		TempDir:            getEnv("TEMP_DIR", os.TempDir()+"/animator"),
		AIProvider:         getEnv("AI_PROVIDER", "openai"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ManimBinary:        getEnv("MANIM_BINARY", "manim"),
		RenderTimeout:      getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
		FFmpegBinary:       getEnv("FFMPEG_BINARY", "ffmpeg"),
		FFprobeBinary:      getEnv("FFPROBE_BINARY", "ffprobe"),
		FFmpegTimeout:      getEnvDuration("FFMPEG_TIMEOUT", 120*time.Second),
		QueueBackend:       getEnv("QUEUE_BACKEND", "memory"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerCount:        getEnvInt("WORKER_COUNT", 3),
	}

	// Validate required fields
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown AI provider: %s (supported: openai, gemini)", cfg.AIProvider)
	}

	if cfg.QueueBackend != "memory" && cfg.QueueBackend != "redis" {
		return nil, fmt.Errorf("unknown queue backend: %s (supported: memory, redis)", cfg.QueueBackend)
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
