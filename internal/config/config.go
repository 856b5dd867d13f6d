package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "SCENARIO"
	configName = "scenario-uploader"

	ModeCreate = "CreateContainer"
	ModeUpdate = "UpdateContainer"
)

type Config struct {
	Region        string        `mapstructure:"region"`
	Endpoint      string        `mapstructure:"endpoint"`
	MinThroughput int64         `mapstructure:"min-throughput"`
	MaxRetries    int           `mapstructure:"max-retries"`
	MaxRetryWait  time.Duration `mapstructure:"max-retry-wait"`
	MaxBackoff    time.Duration `mapstructure:"max-backoff"`
	Concurrency   int           `mapstructure:"concurrency"`
	TableWait     time.Duration `mapstructure:"table-wait"`
	Progress      time.Duration `mapstructure:"progress"`
	NotifyTopic   string        `mapstructure:"notify-topic"`
	Yes           bool          `mapstructure:"yes"`
	Verbose       bool          `mapstructure:"verbose"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("notify-topic", "")
	v.SetDefault("yes", false)
	v.SetDefault("verbose", false)
	v.SetDefault("min-throughput", 400)
	v.SetDefault("max-retries", 30)
	v.SetDefault("max-retry-wait", 100*time.Second)
	v.SetDefault("max-backoff", 5*time.Second)
	v.SetDefault("concurrency", 0)
	v.SetDefault("table-wait", 5*time.Minute)
	v.SetDefault("progress", time.Second)
}

// Load layers flags over SCENARIO_* environment variables over an optional
// scenario-uploader.yaml found in dir (or the working directory).
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.MinThroughput < 1 {
		return nil, fmt.Errorf("min-throughput must be positive, got %d", cfg.MinThroughput)
	}
	return cfg, nil
}

// ParseMode reports whether the container mode asks for table creation.
func ParseMode(mode string) (bool, error) {
	switch mode {
	case "", ModeUpdate:
		return false, nil
	case ModeCreate:
		return true, nil
	}
	return false, fmt.Errorf("unknown container mode %q (want %s or %s)", mode, ModeCreate, ModeUpdate)
}
