package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM backend selectors.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

const insecureJWTDefault = "your-jwt-secret-key-here"

// Config holds all runtime settings, loaded from the environment with an
// optional .env file on top.
type Config struct {
	AppName    string
	AppVersion string
	Debug      bool

	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	// LLM
	Backend       string
	OllamaBaseURL string
	OllamaModel   string
	OpenAIAPIKey  string
	OpenAIModel   string

	// Auth
	JWTSecretKey      string
	AccessTokenExpiry time.Duration

	AllowedOrigins []string

	LogLevel  string
	LogFormat string
	LogFile   string

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins because
	// godotenv never overrides set variables.
	_ = godotenv.Load()

	cfg := &Config{
		AppName:    getenv("APP_NAME", "HealthBot Medical Diagnosis Assistant"),
		AppVersion: getenv("APP_VERSION", "1.0.0"),
		Debug:      getbool("DEBUG", false),

		HTTPAddr:    getenv("HTTP_ADDR", ":8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379"),

		Backend:       getenv("LLM_BACKEND", BackendOllama),
		OllamaBaseURL: getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getenv("OLLAMA_MODEL", "llama3.1:8b"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),

		JWTSecretKey:      getenv("JWT_SECRET_KEY", insecureJWTDefault),
		AccessTokenExpiry: time.Duration(getint("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,

		AllowedOrigins: getlist("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),

		RateLimitRequests: getint("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getint("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.Backend != BackendOllama && c.Backend != BackendOpenAI {
		return errors.New("config: LLM_BACKEND must be ollama or openai")
	}
	if !c.Debug && c.JWTSecretKey == insecureJWTDefault {
		return errors.New("config: JWT_SECRET_KEY must be changed outside debug mode")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
