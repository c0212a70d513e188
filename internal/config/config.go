// Package config manages application configuration from a YAML file,
// RELAY_-prefixed environment variables, and default values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Messenger MessengerConfig `mapstructure:"messenger"`
	Reply     ReplyConfig     `mapstructure:"reply"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// Pages maps a page ID to that page's access token. The set is fixed at
	// deploy time; adding a page is a configuration change, not a code change.
	Pages map[string]string `mapstructure:"pages"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s,max=1m"`
}

type WebhookConfig struct {
	// VerifyToken is the shared secret echoed back during the provider's
	// subscription handshake.
	VerifyToken string `mapstructure:"verify_token" validate:"required"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type MessengerConfig struct {
	BaseURL    string        `mapstructure:"base_url"    validate:"required,url"`
	APIVersion string        `mapstructure:"api_version" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"required,min=1s,max=1m"`
}

type ReplyConfig struct {
	// Template is the canned reply. A literal "{text}" is replaced with the
	// inbound message text.
	Template string `mapstructure:"template" validate:"required"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig loads and validates configuration from defaults, the YAML file at
// configPath (optional), and RELAY_* environment variables, in that order of
// precedence (lowest first).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	// Registered with an empty default so the RELAY_WEBHOOK_VERIFY_TOKEN env
	// override is visible to Unmarshal; validation still requires a value.
	v.SetDefault("webhook.verify_token", "")

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("messenger.base_url", DefaultMessengerBaseURL)
	v.SetDefault("messenger.api_version", DefaultMessengerAPIVersion)
	v.SetDefault("messenger.timeout", DefaultMessengerTimeout)

	v.SetDefault("reply.template", DefaultReplyTemplate)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultMaintenanceSchedule)
}
