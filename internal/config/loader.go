package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the HNWI_GATEWAY prefix with underscores, e.g.
// HNWI_GATEWAY_UPSTREAM_BASE_URL.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return unmarshal(v)
}

// WatchConfig re-reads the config file on change and invokes onChange with
// the new snapshot. Only a subset of settings (log level, rate limits, cache
// TTLs) is safe to apply at runtime; callers decide what to pick up.
func WatchConfig(log logger.Logger, onChange func(*Config)) {
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		// No config file to watch; env-only deployments reload by restart.
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn(context.Background(), "ignoring config reload", logger.Error(err), logger.String("file", e.Name))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "invalid configuration")
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/hnwi-gateway/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HNWI_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("upstream.timeout", 10)
	v.SetDefault("upstream.stream_timeout", 300)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gateway")
	v.SetDefault("database.database", "hnwi_gateway")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("vault.mount_path", "secret")

	v.SetDefault("auth.session_ttl", 1800)
	v.SetDefault("auth.refresh_ttl", 604800)
	v.SetDefault("auth.session_issuer", "hnwi-gateway")
	v.SetDefault("auth.session_audience", "hnwi-platform")
	v.SetDefault("auth.cookie_secure", true)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_rpm", 120)
	v.SetDefault("rate_limit.burst_size", 20)

	v.SetDefault("kafka.event_topic", "hnwi.platform.events")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", 100)
	v.SetDefault("kafka.required_acks", -1)
	v.SetDefault("kafka.write_timeout", 10)

	v.SetDefault("cache.dashboard_ttl", 120)
	v.SetDefault("cache.vault_asset_ttl", 300)
	v.SetDefault("cache.local_ttl", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.service_name", "hnwi-gateway")
}
