package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable for the identification pipeline. All values come
// from the environment; heuristics (score weights, word caps, confidence
// floors) are policy knobs, not contracts.
type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	EngineTimeout      time.Duration
	ProviderTimeout    time.Duration
	MaxRequestBodySize int64

	// Preprocessing
	MaxImageEdge int

	// Candidate extraction
	TitleMaxWords      int
	EntityScoreFloor   float64
	OCRDigitWeight     float64
	OCRNoiseWeight     float64

	// Providers
	OMDBAPIKey   string
	OMDBBaseURL  string
	TMDBAPIKey   string
	TMDBBaseURL  string
	TMDBLanguage string

	// Vision agent (ollama)
	OllamaBaseURL string
	OllamaPort    int
	OllamaModel   string

	// Embedding matcher
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	EmbeddingModel  string
	PostgresDSN     string
	EmbeddingFloor  float64

	// Image source backend ("http" or "azure")
	StorageType      string
	AzureAccountName string
	AzureAccountKey  string

	// Cache
	CacheTTL  time.Duration
	CachePath string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// VisionAgentEnabled reports whether the ollama vision engine is configured.
func (c *Config) VisionAgentEnabled() bool {
	return c.OllamaModel != ""
}

// EmbeddingEnabled reports whether the pgvector embedding matcher is configured.
func (c *Config) EmbeddingEnabled() bool {
	return c.PostgresDSN != "" && c.OpenAIAPIKey != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		EngineTimeout:      parseDurationOrDefault("ENGINE_TIMEOUT", 20*time.Second),
		ProviderTimeout:    parseDurationOrDefault("PROVIDER_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB

		MaxImageEdge: int(parseIntOrDefault("MAX_IMAGE_EDGE", 1000)),

		TitleMaxWords:    int(parseIntOrDefault("TITLE_MAX_WORDS", 4)),
		EntityScoreFloor: parseFloatOrDefault("ENTITY_SCORE_FLOOR", 0.7),
		OCRDigitWeight:   parseFloatOrDefault("OCR_DIGIT_WEIGHT", 0.5),
		OCRNoiseWeight:   parseFloatOrDefault("OCR_NOISE_WEIGHT", 0.3),

		OMDBAPIKey:   os.Getenv("OMDB_API_KEY"),
		OMDBBaseURL:  getEnvOrDefault("OMDB_BASE_URL", "http://www.omdbapi.com/"),
		TMDBAPIKey:   os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:  getEnvOrDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage: getEnvOrDefault("TMDB_LANGUAGE", "en-US"),

		OllamaBaseURL: getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost"),
		OllamaPort:    int(parseIntOrDefault("OLLAMA_PORT", 11434)),
		OllamaModel:   os.Getenv("OLLAMA_VISION_MODEL"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		EmbeddingFloor: parseFloatOrDefault("EMBEDDING_FLOOR", 0.82),

		StorageType:      getEnvOrDefault("STORAGE_TYPE", "http"),
		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),

		CacheTTL:  parseDurationOrDefault("CACHE_TTL", 24*time.Hour),
		CachePath: os.Getenv("CACHE_PATH"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.OMDBAPIKey == "" && cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("at least one of OMDB_API_KEY or TMDB_API_KEY must be set")
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.EngineTimeout <= 0 || cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, engine=%s, provider=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.EngineTimeout, cfg.ProviderTimeout)
	}
	if cfg.MaxImageEdge < 100 {
		return nil, fmt.Errorf("MAX_IMAGE_EDGE too small (got %d)", cfg.MaxImageEdge)
	}
	if cfg.TitleMaxWords < 1 {
		return nil, fmt.Errorf("TITLE_MAX_WORDS must be >= 1 (got %d)", cfg.TitleMaxWords)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
