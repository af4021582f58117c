package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", defaultWriteTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory storage backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Sources.Mode != "synthetic" {
		t.Errorf("expected synthetic source mode, got %q", cfg.Sources.Mode)
	}
	if cfg.Enrichment.Provider != "none" {
		t.Errorf("expected no enrichment provider, got %q", cfg.Enrichment.Provider)
	}

	a := cfg.Automation
	if a.FullInterval != time.Hour || a.LightweightInterval != 30*time.Minute {
		t.Errorf("unexpected intervals: full=%v lightweight=%v", a.FullInterval, a.LightweightInterval)
	}
	if a.BatchSize != 3 || a.BatchDelay != time.Second {
		t.Errorf("unexpected batching: size=%d delay=%v", a.BatchSize, a.BatchDelay)
	}
	if a.FullEnrichmentDelay != 300*time.Millisecond || a.LightweightEnrichmentDelay != time.Second {
		t.Errorf("unexpected enrichment delays: full=%v lightweight=%v", a.FullEnrichmentDelay, a.LightweightEnrichmentDelay)
	}
	if a.Autostart {
		t.Error("expected autostart to be off by default")
	}
	if cfg.Notify.RingCapacity != 50 {
		t.Errorf("expected ring capacity 50, got %d", cfg.Notify.RingCapacity)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                      "9090",
		"SERVER_READ_TIMEOUT_SECONDS":      "30",
		"SERVER_WRITE_TIMEOUT_SECONDS":     "45",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS":  "15",
		"LOG_LEVEL":                        "debug",
		"LOG_FORMAT":                       "text",
		"STORAGE_BACKEND":                  "file",
		"STORAGE_FILE":                     "/tmp/events.json",
		"AUTOMATION_AUTOSTART":             "true",
		"AUTOMATION_FULL_INTERVAL":         "2h",
		"AUTOMATION_BATCH_SIZE":            "5",
		"AUTOMATION_FULL_ENRICHMENT_DELAY": "150ms",
		"TELEGRAM_CHAT_ID":                 "-100123",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != overrides["SERVER_PORT"] {
		t.Errorf("expected overridden port %q, got %q", overrides["SERVER_PORT"], cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("expected write timeout %v, got %v", 45*time.Second, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected shutdown timeout %v, got %v", 15*time.Second, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Logging.Format != overrides["LOG_FORMAT"] {
		t.Errorf("expected log format %q, got %q", overrides["LOG_FORMAT"], cfg.Logging.Format)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.FilePath != "/tmp/events.json" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if !cfg.Automation.Autostart {
		t.Error("expected autostart to be enabled")
	}
	if cfg.Automation.FullInterval != 2*time.Hour {
		t.Errorf("expected full interval 2h, got %v", cfg.Automation.FullInterval)
	}
	if cfg.Automation.BatchSize != 5 {
		t.Errorf("expected batch size 5, got %d", cfg.Automation.BatchSize)
	}
	if cfg.Automation.FullEnrichmentDelay != 150*time.Millisecond {
		t.Errorf("expected enrichment delay 150ms, got %v", cfg.Automation.FullEnrichmentDelay)
	}
	if cfg.Notify.TelegramChatID != -100123 {
		t.Errorf("expected telegram chat id -100123, got %d", cfg.Notify.TelegramChatID)
	}
}

func TestLoadPortPrefersPlatformVariable(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("expected PORT to win, got %q", cfg.Server.Port)
	}
}

func TestLoadPartialOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected overridden read timeout %v, got %v", 5*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", defaultWriteTimeout, cfg.Server.WriteTimeout)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "abc",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "3.5",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"STORAGE_BACKEND":                 "mongo",
		"SOURCE_MODE":                     "scrape-everything",
		"ENRICHMENT_PROVIDER":             "magic",
		"AUTOMATION_BATCH_SIZE":           "0",
		"AUTOMATION_FULL_INTERVAL":        "soon",
		"AUTOMATION_AUTOSTART":            "maybe",
		"TELEGRAM_CHAT_ID":                "chat",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestLoadChannelBaseURLs(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources.ChannelAURL != "" || cfg.Sources.ChannelBURL != "" {
		t.Fatalf("channel URLs should default to empty: %+v", cfg.Sources)
	}

	t.Setenv("SOURCE_CHANNEL_A_URL", " https://a.example.com/profiles/ ")
	t.Setenv("SOURCE_CHANNEL_B_URL", "http://b.example.com/pages")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources.ChannelAURL != "https://a.example.com/profiles/" {
		t.Errorf("ChannelAURL = %q", cfg.Sources.ChannelAURL)
	}
	if cfg.Sources.ChannelBURL != "http://b.example.com/pages" {
		t.Errorf("ChannelBURL = %q", cfg.Sources.ChannelBURL)
	}
}

func TestLoadRejectsInvalidChannelURLs(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SOURCE_CHANNEL_A_URL", "a.example.com/profiles"},
		{"SOURCE_CHANNEL_A_URL", "ftp://a.example.com"},
		{"SOURCE_CHANNEL_B_URL", "https://"},
		{"SOURCE_CHANNEL_B_URL", "://bad"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRequiresCredentialsForProviders(t *testing.T) {
	tests := map[string]string{
		"STORAGE_BACKEND":     "postgres",
		"ENRICHMENT_PROVIDER": "openai",
	}

	for key, value := range tests {
		t.Run(value, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q without credentials", key, value)
			}
		})
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "venuewatch.yaml")
	content := "server_port: \"8181\"\nlog_format: text\nsource_mode: live\nbatch_size: \"4\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8181" {
		t.Errorf("expected port from file, got %q", cfg.Server.Port)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text format from file, got %q", cfg.Logging.Format)
	}
	if cfg.Sources.Mode != "live" {
		t.Errorf("expected live mode from file, got %q", cfg.Sources.Mode)
	}
	if cfg.Automation.BatchSize != 4 {
		t.Errorf("expected batch size 4 from file, got %d", cfg.Automation.BatchSize)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected default storage backend, got %q", cfg.Storage.Backend)
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("SERVER_READ_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout after reset, got %v", cfg.Server.ReadTimeout)
	}
}

// clearConfigEnv unsets every variable Load reads. Setenv first so the
// original values are restored when the test ends.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CONFIG_PATH",
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"STORAGE_BACKEND",
		"STORAGE_FILE",
		"DATABASE_URL",
		"AUTOMATION_AUTOSTART",
		"AUTOMATION_FULL_INTERVAL",
		"AUTOMATION_LIGHTWEIGHT_INTERVAL",
		"AUTOMATION_BATCH_SIZE",
		"AUTOMATION_BATCH_DELAY",
		"AUTOMATION_FULL_ENRICHMENT_DELAY",
		"AUTOMATION_LIGHTWEIGHT_ENRICHMENT_DELAY",
		"SOURCE_MODE",
		"VENUES_FILE",
		"SOURCE_HTTP_TIMEOUT",
		"SOURCE_USER_AGENT",
		"ENRICHMENT_PROVIDER",
		"OPENAI_API_KEY",
		"OPENROUTER_API_KEY",
		"ENRICHMENT_MODEL",
		"ENRICHMENT_GENERATE_IMAGES",
		"ENRICHMENT_REQUESTS_PER_MINUTE",
		"NOTIFY_RING_CAPACITY",
		"NATS_URL",
		"NATS_SUBJECT",
		"TELEGRAM_BOT_TOKEN",
		"TELEGRAM_CHAT_ID",
		"EXPORT_S3_BUCKET",
		"EXPORT_S3_KEY",
		"EXPORT_S3_REGION",
		"EXPORT_S3_ENDPOINT",
		"ADMIN_JWT_SECRET",
		"ADMIN_PASSWORD",
		"SOURCE_CHANNEL_A_URL",
		"SOURCE_CHANNEL_B_URL",
	}

	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}
