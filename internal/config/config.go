package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	OpenAIAPIKey  string
	Model         string
	STTModel      string
	// Path to the YAML agent profile definitions
	ProfilesPath string
	// Database (optional; interaction audit log)
	DatabaseURL string
	// Directory for per-session preference files
	DataDir string
	// Logging
	LogFile    string
	Production bool
	// Live sessions with no inbound traffic for this long are torn down
	SessionIdleTimeout time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "*"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:              getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		STTModel:           getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		ProfilesPath:       getEnvDefault("AGENT_PROFILES", "./prompts/agents.yaml"),
		DatabaseURL:        os.Getenv("DB_URL"),
		DataDir:            getEnvDefault("DATA_DIR", "data"),
		LogFile:            getEnvDefault("LOG_FILE", "logs/aria-server.log"),
		Production:         getEnvBoolDefault("PRODUCTION", false),
		SessionIdleTimeout: getEnvDurationDefault("SESSION_IDLE_TIMEOUT", 10*time.Minute),
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("warning: OPENAI_API_KEY is not set; model calls will fail until provided")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
		log.Printf("warning: invalid duration in %s: %q, using default", key, v)
	}
	return def
}
