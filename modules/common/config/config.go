package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config - every environment knob the server reads, loaded once.
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
	ArtifactBucket         string

	// Gemini API
	GeminiAPIKey string
	GeminiModel  string

	// Vertex AI (optional alternative transform backend)
	VertexProject  string
	VertexLocation string

	// Server
	Port string

	// Processing
	BatchConcurrency  int // jobs of one batch processed at a time; 1 = strictly sequential
	WorkerConcurrency int // queue worker parallelism
}

var globalConfig *Config

// LoadConfig - load .env (if present) and environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := true // default
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
		ArtifactBucket:         getEnv("ARTIFACT_BUCKET", "artifacts"),

		// Gemini API
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),

		// Vertex AI
		VertexProject:  getEnv("VERTEXAI_PROJECT", ""),
		VertexLocation: getEnv("VERTEXAI_LOCATION", "us-central1"),

		// Server
		Port: getEnv("PORT", "8080"),

		// Processing
		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 1),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s (bucket: %s)", globalConfig.SupabaseURL, globalConfig.ArtifactBucket)
	log.Printf("   Gemini: %s", globalConfig.GeminiModel)
	log.Printf("   Batch concurrency: %d, Worker concurrency: %d",
		globalConfig.BatchConcurrency, globalConfig.WorkerConcurrency)

	return globalConfig, nil
}

// GetConfig - the loaded snapshot. LoadConfig must have run.
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - required environment variables. Supabase credentials are not
// required here: without them the server falls back to in-memory stores.
func (c *Config) validate() error {
	if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
		log.Println("⚠️  SUPABASE_URL / SUPABASE_SERVICE_KEY not set, stores will run in memory")
	}
	if c.GeminiAPIKey == "" && c.VertexProject == "" {
		return fmt.Errorf("GEMINI_API_KEY or VERTEXAI_PROJECT is required")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 1")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}
	return nil
}

// getEnv - environment variable with default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt - integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetRedisAddr - Redis connection string.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// UseVertex - true when the Vertex AI backend should handle transforms.
func (c *Config) UseVertex() bool {
	return c.VertexProject != ""
}
