package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	LogLevel string

	CatalogPath     string
	CatalogLinkBase string
	PersonaFile     string

	ModelProvider    string
	ModelMode        string
	GeminiAPIKey     string
	GeminiModel      string
	OllamaBaseURL    string
	OllamaModel      string
	ModelTemperature float64
	ModelMaxTokens   int
	ModelTimeout     time.Duration

	GeoTimeout     time.Duration
	WeatherTimeout time.Duration
	RequestTimeout time.Duration
	ForecastDays   int

	HistoryWindow      int
	HistoryPromptTurns int
	MemoryBackend      string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	MaxImageBytes int64
	CORSOrigins   []string
}

var AppConfig Config

// LoadConfig reads .env (if present) and the process environment into AppConfig.
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = FromEnv()
	if err := AppConfig.Validate(); err != nil {
		log.Fatal(err)
	}
}

// FromEnv builds a Config from environment variables without touching .env.
func FromEnv() Config {
	cfg := Config{
		HTTPPort: getEnv("HTTP_PORT", getEnv("PORT", "8080")),
		LogLevel: strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),

		CatalogPath:     getEnv("CATALOG_PATH", "products.csv"),
		CatalogLinkBase: strings.TrimRight(getEnv("CATALOG_LINK_BASE", "https://afaq-stores.com"), "/"),
		PersonaFile:     getEnv("PERSONA_FILE", ""),

		ModelProvider:    strings.ToLower(getEnv("MODEL_PROVIDER", "gemini")),
		ModelMode:        strings.ToLower(getEnv("MODEL_MODE", "stateless")),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llava:latest"),
		ModelTemperature: getEnvAsFloat("MODEL_TEMPERATURE", 0.85),
		ModelMaxTokens:   getEnvAsInt("MODEL_MAX_TOKENS", 2048),
		ModelTimeout:     getEnvAsDuration("MODEL_TIMEOUT", 60*time.Second),

		GeoTimeout:     getEnvAsDuration("GEO_TIMEOUT", 8*time.Second),
		WeatherTimeout: getEnvAsDuration("WEATHER_TIMEOUT", 10*time.Second),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 90*time.Second),
		ForecastDays:   getEnvAsInt("FORECAST_DAYS", 14),

		HistoryWindow:      getEnvAsInt("HISTORY_WINDOW", 30),
		HistoryPromptTurns: getEnvAsInt("HISTORY_PROMPT_TURNS", 10),
		MemoryBackend:      strings.ToLower(getEnv("MEMORY_BACKEND", "memory")),
		DatabaseURL:        getEnv("DATABASE_URL", "stylist_gateway.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),

		MaxImageBytes: int64(getEnvAsInt("MAX_IMAGE_BYTES", 5*1024*1024)),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
	}

	// The forecast provider serves at most 14 days.
	if cfg.ForecastDays <= 0 || cfg.ForecastDays > 14 {
		cfg.ForecastDays = 14
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 30
	}
	if cfg.HistoryPromptTurns < 0 || cfg.HistoryPromptTurns > cfg.HistoryWindow {
		cfg.HistoryPromptTurns = cfg.HistoryWindow
	}
	// Whole user/assistant exchanges only.
	cfg.HistoryPromptTurns -= cfg.HistoryPromptTurns % 2
	return cfg
}

// Validate reports configuration that would make the service unusable.
func (c Config) Validate() error {
	switch c.ModelProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported MODEL_PROVIDER=%q", c.ModelProvider)
	}
	if c.ModelMode != "stateless" && c.ModelMode != "session" {
		return fmt.Errorf("unsupported MODEL_MODE=%q", c.ModelMode)
	}
	switch c.MemoryBackend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported MEMORY_BACKEND=%q", c.MemoryBackend)
	}
	return nil
}

// Debug reports whether LOG_LEVEL asks for diagnostic output.
func (c Config) Debug() bool {
	return c.LogLevel == "DEBUG"
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("8s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
