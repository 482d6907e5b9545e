package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"

	"github.com/echocat/ha-companion-media-player/shared"
)

type Config struct {
	Companion     CompanionConfig
	HomeAssistant HomeAssistantConfig
	Pushover      PushoverConfig
}

type CompanionConfig struct {
	BackgroundJobsEnabled bool   `env:"BACKGROUND_JOBS_ENABLED"`
	DbPath                string `env:"DB_PATH"`
	LogLevel              string `env:"LOG_LEVEL"`
	Port                  string `env:"PORT"`
	SessionTimeoutMinutes int    `env:"SESSION_TIMEOUT_MINUTES"`
	SnapshotWebhookSecret string `env:"SNAPSHOT_WEBHOOK_SECRET"`
	StorageDir            string `env:"STORAGE_DIR"`
	VolumeMax             int    `env:"VOLUME_MAX"`
}

type HomeAssistantConfig struct {
	Token string `env:"HOME_ASSISTANT_TOKEN"`
	URL   string `env:"HOME_ASSISTANT_URL"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

func Load() (*Config, error) {
	c := &Config{
		Companion: CompanionConfig{
			BackgroundJobsEnabled: true,
			DbPath:                "companion.db",
			Port:                  "8080",
			SessionTimeoutMinutes: shared.DefaultSessionTimeoutMinutes,
			StorageDir:            "/tmp",
			VolumeMax:             shared.DefaultVolumeMax,
		},
	}

	loader := config.New()
	if _, err := os.Stat(".env"); err == nil {
		loader.AddFeeder(feeder.DotEnv{Path: ".env"})
	}
	loader.AddFeeder(feeder.Env{})
	loader.AddStruct(&c.Companion)
	loader.AddStruct(&c.HomeAssistant)
	loader.AddStruct(&c.Pushover)

	if err := loader.Feed(); err != nil {
		return nil, err
	}

	return c, nil
}

// SessionTimeoutMinutes returns the configured timeout clamped to the
// range the companion app supports.
func (c *Config) SessionTimeoutMinutes() int {
	timeout := c.Companion.SessionTimeoutMinutes
	if timeout < shared.MinSessionTimeoutMinutes {
		return shared.DefaultSessionTimeoutMinutes
	}
	if timeout > shared.MaxSessionTimeoutMinutes {
		return shared.MaxSessionTimeoutMinutes
	}
	return timeout
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Companion.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
