package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramBotToken string
	TelegramChatID   string
	WebhookAuthToken string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	LLMTimeout        time.Duration
	NotifyTimeout     time.Duration
	RateLimitInterval time.Duration

	SignalProfile     string
	SignalProfileFile string

	CacheBackend string
	RedisURL     string
	DatabaseURL  string

	// DecisionRetention is how long audit rows are kept. Zero keeps them
	// forever.
	DecisionRetention time.Duration

	CORSAllowedOrigins []string
	Port               int

	LogLevel  string
	LogFormat string

	TracingEnabled bool
	OTLPEndpoint   string

	// Warnings lists missing or invalid settings found while loading. They
	// are logged once the logger exists.
	Warnings []string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken:  strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:    strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		WebhookAuthToken:  os.Getenv("WEBHOOK_AUTH_TOKEN"),
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		SignalProfileFile: strings.TrimSpace(os.Getenv("SIGNAL_PROFILE_FILE")),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:          strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:         strings.TrimSpace(os.Getenv("LOG_FORMAT")),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		cfg.warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, notifications disabled")
	}
	if cfg.WebhookAuthToken == "" {
		cfg.warn("WEBHOOK_AUTH_TOKEN not set, every webhook request will be rejected")
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.warn("OPENAI_API_KEY not set, signals will come from the fallback rule")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.LLMTimeout = cfg.seconds("LLM_TIMEOUT_SECS", 10)
	cfg.NotifyTimeout = cfg.seconds("NOTIFY_TIMEOUT_SECS", 5)
	cfg.RateLimitInterval = cfg.seconds("RATE_LIMIT_INTERVAL_SECS", 12)

	cfg.DecisionRetention = 30 * 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("DECISION_RETENTION_DAYS")); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.DecisionRetention = time.Duration(days) * 24 * time.Hour
		} else {
			cfg.warn("invalid DECISION_RETENTION_DAYS=" + strconv.Quote(v) + ", using default")
		}
	}

	cfg.SignalProfile = strings.ToLower(strings.TrimSpace(os.Getenv("SIGNAL_PROFILE")))
	if cfg.SignalProfile == "" {
		cfg.SignalProfile = "standard"
	}

	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(os.Getenv("CACHE_BACKEND")))
	switch cfg.CacheBackend {
	case "":
		cfg.CacheBackend = "memory"
	case "memory", "redis":
	default:
		cfg.warn("unsupported CACHE_BACKEND=" + strconv.Quote(cfg.CacheBackend) + ", defaulting to memory")
		cfg.CacheBackend = "memory"
	}
	if cfg.CacheBackend == "redis" && cfg.RedisURL == "" {
		cfg.warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.TracingEnabled = true
	if v := strings.TrimSpace(os.Getenv("TRACING_ENABLED")); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.TracingEnabled = enabled
		} else {
			cfg.warn("invalid TRACING_ENABLED=" + strconv.Quote(v) + ", tracing stays enabled")
		}
	}
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		} else {
			cfg.warn("invalid PORT=" + strconv.Quote(v) + ", defaulting to 8080")
		}
	}

	return cfg
}

func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func (c *Config) seconds(key string, def int) time.Duration {
	n := def
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		} else {
			c.warn("invalid " + key + "=" + strconv.Quote(v) + ", using default")
		}
	}
	return time.Duration(n) * time.Second
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}
