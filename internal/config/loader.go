// Package config loads pipeline configuration from defaults, an
// optional config file, and RXNET_* environment variables.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the resolved pipeline configuration.
type Config struct {
	// DataRoot holds one working directory per node identifier, plus
	// the runs/ registry.
	DataRoot string `mapstructure:"data_root"`

	// DatabasePath is the SQLite network database.
	DatabasePath string `mapstructure:"database_path"`

	LogLevel string `mapstructure:"log_level"`

	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Toolkit   ToolkitConfig   `mapstructure:"toolkit"`
	Server    ServerConfig    `mapstructure:"server"`
}

// SchedulerConfig locates the cluster scheduler.
type SchedulerConfig struct {
	// ServerDir is the scheduler server state directory. The
	// HQ_SERVER_DIR environment variable overrides it, matching the
	// scheduler's own convention.
	ServerDir string `mapstructure:"server_dir"`

	Binary string `mapstructure:"binary"`

	ReadyAttempts int           `mapstructure:"ready_attempts"`
	ReadyInterval time.Duration `mapstructure:"ready_interval"`
}

// ToolkitConfig locates the chemistry helper binary.
type ToolkitConfig struct {
	Binary string `mapstructure:"binary"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// RateLimit is the per-client request budget in requests/second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// Load resolves configuration. cfgFile may be empty; then only defaults
// and environment apply plus an optional ./rxnet.yaml.
func Load(ctx context.Context, cfgFile string) (*Config, error) {
	_ = ctx

	v := viper.New()

	v.SetDefault("data_root", "data")
	v.SetDefault("database_path", "data/network.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("scheduler.server_dir", "data/hq-server")
	v.SetDefault("scheduler.binary", "hq")
	v.SetDefault("scheduler.ready_attempts", 10)
	v.SetDefault("scheduler.ready_interval", 2*time.Second)
	v.SetDefault("toolkit.binary", "amx")
	v.SetDefault("server.addr", "localhost:8642")
	v.SetDefault("server.rate_limit", 10.0)

	v.SetEnvPrefix("RXNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The scheduler's own convention wins for its state directory.
	_ = v.BindEnv("scheduler.server_dir", "HQ_SERVER_DIR", "RXNET_SCHEDULER_SERVER_DIR")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("rxnet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
