package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents runtime configuration derived from environment variables
// and an optional YAML file named by CONFIG_PATH.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Storage    StorageConfig
	Automation AutomationConfig
	Sources    SourcesConfig
	Enrichment EnrichmentConfig
	Notify     NotifyConfig
	Export     ExportConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// StorageConfig selects the event repository backend.
type StorageConfig struct {
	Backend     string // memory, file or postgres
	FilePath    string
	DatabaseURL string
}

// AutomationConfig holds scheduler and orchestrator pacing.
type AutomationConfig struct {
	Autostart                  bool
	FullInterval               time.Duration
	LightweightInterval        time.Duration
	BatchSize                  int
	BatchDelay                 time.Duration
	FullEnrichmentDelay        time.Duration
	LightweightEnrichmentDelay time.Duration
}

// SourcesConfig selects how candidate events are acquired.
type SourcesConfig struct {
	Mode        string // synthetic or live
	VenuesFile  string
	HTTPTimeout time.Duration
	UserAgent   string
	// ChannelAURL and ChannelBURL are page prefixes a venue's social handle is
	// appended to in live mode. An empty prefix disables that channel.
	ChannelAURL string
	ChannelBURL string
}

// EnrichmentConfig selects the description and image providers.
type EnrichmentConfig struct {
	Provider          string // none, openai or openrouter
	OpenAIKey         string
	OpenRouterKey     string
	Model             string
	GenerateImages    bool
	RequestsPerMinute int
}

// NotifyConfig configures notification sinks beyond the in-memory ring.
type NotifyConfig struct {
	RingCapacity   int
	NATSURL        string
	NATSSubject    string
	TelegramToken  string
	TelegramChatID int64
}

// ExportConfig configures the JSONL snapshot upload after full cycles.
type ExportConfig struct {
	S3Bucket   string
	S3Key      string
	S3Region   string
	S3Endpoint string
}

// AuthConfig holds admin API credentials.
type AuthConfig struct {
	JWTSecret     string
	AdminPassword string
	TokenDuration time.Duration
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultFullInterval               = time.Hour
	defaultLightweightInterval        = 30 * time.Minute
	defaultBatchSize                  = 3
	defaultBatchDelay                 = time.Second
	defaultFullEnrichmentDelay        = 300 * time.Millisecond
	defaultLightweightEnrichmentDelay = time.Second

	defaultRingCapacity = 50
)

// rawConfig mirrors the environment and file layout before validation.
type rawConfig struct {
	Port                   string `yaml:"port" env:"PORT"`
	ServerPort             string `yaml:"server_port" env:"SERVER_PORT"`
	ReadTimeoutSeconds     string `yaml:"read_timeout_seconds" env:"SERVER_READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds    string `yaml:"write_timeout_seconds" env:"SERVER_WRITE_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds string `yaml:"shutdown_timeout_seconds" env:"SERVER_SHUTDOWN_TIMEOUT_SECONDS"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	StorageBackend string `yaml:"storage_backend" env:"STORAGE_BACKEND" env-default:"memory"`
	StorageFile    string `yaml:"storage_file" env:"STORAGE_FILE" env-default:"data/events.json"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`

	Autostart                  string `yaml:"autostart" env:"AUTOMATION_AUTOSTART"`
	FullInterval               string `yaml:"full_interval" env:"AUTOMATION_FULL_INTERVAL"`
	LightweightInterval        string `yaml:"lightweight_interval" env:"AUTOMATION_LIGHTWEIGHT_INTERVAL"`
	BatchSize                  string `yaml:"batch_size" env:"AUTOMATION_BATCH_SIZE"`
	BatchDelay                 string `yaml:"batch_delay" env:"AUTOMATION_BATCH_DELAY"`
	FullEnrichmentDelay        string `yaml:"full_enrichment_delay" env:"AUTOMATION_FULL_ENRICHMENT_DELAY"`
	LightweightEnrichmentDelay string `yaml:"lightweight_enrichment_delay" env:"AUTOMATION_LIGHTWEIGHT_ENRICHMENT_DELAY"`

	SourceMode  string `yaml:"source_mode" env:"SOURCE_MODE" env-default:"synthetic"`
	VenuesFile  string `yaml:"venues_file" env:"VENUES_FILE"`
	HTTPTimeout string `yaml:"http_timeout" env:"SOURCE_HTTP_TIMEOUT" env-default:"15s"`
	UserAgent   string `yaml:"user_agent" env:"SOURCE_USER_AGENT" env-default:"venuewatch/1.0"`
	ChannelAURL string `yaml:"channel_a_url" env:"SOURCE_CHANNEL_A_URL"`
	ChannelBURL string `yaml:"channel_b_url" env:"SOURCE_CHANNEL_B_URL"`

	EnrichmentProvider string `yaml:"enrichment_provider" env:"ENRICHMENT_PROVIDER" env-default:"none"`
	OpenAIKey          string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenRouterKey      string `yaml:"openrouter_api_key" env:"OPENROUTER_API_KEY"`
	EnrichmentModel    string `yaml:"enrichment_model" env:"ENRICHMENT_MODEL"`
	GenerateImages     string `yaml:"generate_images" env:"ENRICHMENT_GENERATE_IMAGES"`
	RequestsPerMinute  string `yaml:"requests_per_minute" env:"ENRICHMENT_REQUESTS_PER_MINUTE"`

	RingCapacity   string `yaml:"notification_capacity" env:"NOTIFY_RING_CAPACITY"`
	NATSURL        string `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject    string `yaml:"nats_subject" env:"NATS_SUBJECT" env-default:"venuewatch.notifications"`
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`

	S3Bucket   string `yaml:"s3_bucket" env:"EXPORT_S3_BUCKET"`
	S3Key      string `yaml:"s3_key" env:"EXPORT_S3_KEY" env-default:"venuewatch/events.jsonl"`
	S3Region   string `yaml:"s3_region" env:"EXPORT_S3_REGION" env-default:"eu-west-1"`
	S3Endpoint string `yaml:"s3_endpoint" env:"EXPORT_S3_ENDPOINT"`

	JWTSecret     string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET" env-default:"change-this-secret"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD" env-default:"admin"`
}

// Load reads configuration from environment variables, applying defaults when
// values are not provided and rejecting invalid ones.
func Load() (Config, error) {
	var raw rawConfig
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &raw); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&raw); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	return build(raw)
}

func build(raw rawConfig) (Config, error) {
	// Cloud platforms set PORT, SERVER_PORT is the local override
	port := raw.Port
	if port == "" {
		port = orDefault(raw.ServerPort, defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(raw.StorageBackend),
			FilePath:    raw.StorageFile,
			DatabaseURL: raw.DatabaseURL,
		},
		Automation: AutomationConfig{
			FullInterval:               defaultFullInterval,
			LightweightInterval:        defaultLightweightInterval,
			BatchSize:                  defaultBatchSize,
			BatchDelay:                 defaultBatchDelay,
			FullEnrichmentDelay:        defaultFullEnrichmentDelay,
			LightweightEnrichmentDelay: defaultLightweightEnrichmentDelay,
		},
		Sources: SourcesConfig{
			Mode:        strings.ToLower(raw.SourceMode),
			VenuesFile:  raw.VenuesFile,
			UserAgent:   raw.UserAgent,
			ChannelAURL: strings.TrimSpace(raw.ChannelAURL),
			ChannelBURL: strings.TrimSpace(raw.ChannelBURL),
		},
		Enrichment: EnrichmentConfig{
			Provider:      strings.ToLower(raw.EnrichmentProvider),
			OpenAIKey:     raw.OpenAIKey,
			OpenRouterKey: raw.OpenRouterKey,
			Model:         raw.EnrichmentModel,
		},
		Notify: NotifyConfig{
			RingCapacity:  defaultRingCapacity,
			NATSURL:       raw.NATSURL,
			NATSSubject:   raw.NATSSubject,
			TelegramToken: raw.TelegramToken,
		},
		Export: ExportConfig{
			S3Bucket:   raw.S3Bucket,
			S3Key:      raw.S3Key,
			S3Region:   raw.S3Region,
			S3Endpoint: raw.S3Endpoint,
		},
		Auth: AuthConfig{
			JWTSecret:     raw.JWTSecret,
			AdminPassword: raw.AdminPassword,
			TokenDuration: 24 * time.Hour,
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = secondsOr(raw.ReadTimeoutSeconds, defaultReadTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
	}
	if cfg.Server.WriteTimeout, err = secondsOr(raw.WriteTimeoutSeconds, defaultWriteTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
	}
	if cfg.Server.ShutdownTimeout, err = secondsOr(raw.ShutdownTimeoutSeconds, defaultShutdownTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
	}

	if raw.LogLevel != "" {
		level, err := parseLogLevel(raw.LogLevel)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if raw.LogFormat != "" {
		switch raw.LogFormat {
		case "json", "text":
			cfg.Logging.Format = raw.LogFormat
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	switch cfg.Storage.Backend {
	case "memory", "file":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return Config{}, fmt.Errorf("invalid STORAGE_BACKEND: postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND: must be 'memory', 'file' or 'postgres'")
	}

	if err := parseAutomation(raw, &cfg.Automation); err != nil {
		return Config{}, err
	}

	switch cfg.Sources.Mode {
	case "synthetic", "live":
	default:
		return Config{}, fmt.Errorf("invalid SOURCE_MODE: must be 'synthetic' or 'live'")
	}
	if cfg.Sources.HTTPTimeout, err = time.ParseDuration(raw.HTTPTimeout); err != nil || cfg.Sources.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid SOURCE_HTTP_TIMEOUT: must be a positive duration")
	}
	for name, raw := range map[string]string{
		"SOURCE_CHANNEL_A_URL": cfg.Sources.ChannelAURL,
		"SOURCE_CHANNEL_B_URL": cfg.Sources.ChannelBURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Config{}, fmt.Errorf("invalid %s: must be an absolute http(s) URL", name)
		}
	}

	switch cfg.Enrichment.Provider {
	case "none":
	case "openai":
		if cfg.Enrichment.OpenAIKey == "" {
			return Config{}, fmt.Errorf("invalid ENRICHMENT_PROVIDER: openai requires OPENAI_API_KEY")
		}
	case "openrouter":
		if cfg.Enrichment.OpenRouterKey == "" {
			return Config{}, fmt.Errorf("invalid ENRICHMENT_PROVIDER: openrouter requires OPENROUTER_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("invalid ENRICHMENT_PROVIDER: must be 'none', 'openai' or 'openrouter'")
	}
	if cfg.Enrichment.GenerateImages, err = boolOr(raw.GenerateImages, false); err != nil {
		return Config{}, fmt.Errorf("invalid ENRICHMENT_GENERATE_IMAGES: %w", err)
	}
	if cfg.Enrichment.RequestsPerMinute, err = positiveIntOr(raw.RequestsPerMinute, 60); err != nil {
		return Config{}, fmt.Errorf("invalid ENRICHMENT_REQUESTS_PER_MINUTE: %w", err)
	}

	if cfg.Notify.RingCapacity, err = positiveIntOr(raw.RingCapacity, defaultRingCapacity); err != nil {
		return Config{}, fmt.Errorf("invalid NOTIFY_RING_CAPACITY: %w", err)
	}
	if raw.TelegramChatID != "" {
		id, err := strconv.ParseInt(raw.TelegramChatID, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: must be an integer")
		}
		cfg.Notify.TelegramChatID = id
	}

	return cfg, nil
}

func parseAutomation(raw rawConfig, a *AutomationConfig) error {
	var err error
	if a.Autostart, err = boolOr(raw.Autostart, false); err != nil {
		return fmt.Errorf("invalid AUTOMATION_AUTOSTART: %w", err)
	}
	if a.FullInterval, err = durationOr(raw.FullInterval, defaultFullInterval); err != nil {
		return fmt.Errorf("invalid AUTOMATION_FULL_INTERVAL: %w", err)
	}
	if a.LightweightInterval, err = durationOr(raw.LightweightInterval, defaultLightweightInterval); err != nil {
		return fmt.Errorf("invalid AUTOMATION_LIGHTWEIGHT_INTERVAL: %w", err)
	}
	if a.BatchSize, err = positiveIntOr(raw.BatchSize, defaultBatchSize); err != nil {
		return fmt.Errorf("invalid AUTOMATION_BATCH_SIZE: %w", err)
	}
	if a.BatchDelay, err = durationOr(raw.BatchDelay, defaultBatchDelay); err != nil {
		return fmt.Errorf("invalid AUTOMATION_BATCH_DELAY: %w", err)
	}
	if a.FullEnrichmentDelay, err = durationOr(raw.FullEnrichmentDelay, defaultFullEnrichmentDelay); err != nil {
		return fmt.Errorf("invalid AUTOMATION_FULL_ENRICHMENT_DELAY: %w", err)
	}
	if a.LightweightEnrichmentDelay, err = durationOr(raw.LightweightEnrichmentDelay, defaultLightweightEnrichmentDelay); err != nil {
		return fmt.Errorf("invalid AUTOMATION_LIGHTWEIGHT_ENRICHMENT_DELAY: %w", err)
	}
	if a.FullInterval == 0 || a.LightweightInterval == 0 {
		return fmt.Errorf("automation intervals must be positive")
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func secondsOr(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return parseSeconds(raw)
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func durationOr(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("must be a non-negative duration such as 500ms or 1h")
	}
	return d, nil
}

func positiveIntOr(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func boolOr(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("must be true or false")
	}
	return b, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
