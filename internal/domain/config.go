package domain

import (
	"os"
	"strconv"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Classifier ClassifierConfig `json:"classifier"`
	Processing ProcessingConfig `json:"processing"`

	// DataDir is the directory holding the static reference tables.
	DataDir string `json:"dataDir"`

	// Observability
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ClassifierConfig holds settings for the external classification
// capability.
type ClassifierConfig struct {
	APIKey         string  `json:"-"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"maxTokens"`
	Temperature    float64 `json:"temperature"`
	RequestTimeout int     `json:"requestTimeout"` // seconds
}

// ProcessingConfig holds settings for the per-session processing loop.
type ProcessingConfig struct {
	// ThrottleMS is the fixed delay between per-complaint calls, a
	// deliberate throttle against the external service's rate limits.
	// The magnitude is deployment-specific, not a correctness constant.
	ThrottleMS int `json:"throttleMs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// DefaultConfig returns the default single-process configuration:
// in-memory cache, channel bus, 100ms throttle.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Cache: CacheConfig{
			Type:       "memory",
			MaxEntries: 0,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Classifier: ClassifierConfig{
			Model:          "gpt-4o-mini",
			MaxTokens:      1024,
			Temperature:    0.2,
			RequestTimeout: 60,
		},
		Processing: ProcessingConfig{
			ThrottleMS: 100,
		},
		DataDir: "./data",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig builds the configuration from defaults plus KESTREL_*
// environment overrides.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("KESTREL_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := envInt("KESTREL_PORT"); v > 0 {
		cfg.Server.Port = v
	}

	if v := os.Getenv("KESTREL_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := envInt("KESTREL_CACHE_MAX_ENTRIES"); v > 0 {
		cfg.Cache.MaxEntries = v
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KESTREL_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := envInt("KESTREL_REDIS_DB"); v > 0 {
		cfg.Cache.RedisDB = v
	}

	if v := os.Getenv("KESTREL_BUS"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("KESTREL_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("KESTREL_NATS_TOKEN"); v != "" {
		cfg.EventBus.NATSToken = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := os.Getenv("KESTREL_MODEL"); v != "" {
		cfg.Classifier.Model = v
	}
	if v := envInt("KESTREL_REQUEST_TIMEOUT"); v > 0 {
		cfg.Classifier.RequestTimeout = v
	}

	if v, ok := os.LookupEnv("KESTREL_THROTTLE_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Processing.ThrottleMS = n
		}
	}

	if v := os.Getenv("KESTREL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if os.Getenv("KESTREL_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
