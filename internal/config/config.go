package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server runtime configuration. Game data lives under Server.ConfigDir and is
// loaded by configstore.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr" validate:"required,hostname_port"`
	ConfigDir string `mapstructure:"config_dir" validate:"required"`
	DataDir   string `mapstructure:"data_dir" validate:"required"`

	// MaxSessions caps concurrent websocket sessions; 0 means unlimited.
	MaxSessions int `mapstructure:"max_sessions" validate:"min=0"`

	WatchConfigs   bool `mapstructure:"watch_configs"`
	DisableTickLog bool `mapstructure:"disable_tick_log"`
	DisableIndex   bool `mapstructure:"disable_index"`
}

type SessionConfig struct {
	// DefaultSeed seeds sessions whose HELLO carries none. 0 derives a seed from the clock.
	DefaultSeed     int64 `mapstructure:"default_seed"`
	StateEveryTicks int   `mapstructure:"state_every_ticks" validate:"min=0,max=1000"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.config_dir", "./configs")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.max_sessions", 0)
	v.SetDefault("server.watch_configs", true)
	v.SetDefault("session.default_seed", 0)
	v.SetDefault("session.state_every_ticks", 4)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configuration with priority env (OB_*) > config file > defaults. v may carry
// bound command-line flags; nil uses a fresh instance. A missing config file is not an error.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("overburnt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("OB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks struct tags and reports every failing field.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			messages := make([]string, 0, len(verrs))
			for _, e := range verrs {
				messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
		}
		return err
	}
	return nil
}
