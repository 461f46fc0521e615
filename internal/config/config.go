package config

import (
	"fmt"
	"time"
)

// Config holds the gateway's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds; also bounds SSE relays
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UpstreamConfig points the gateway at the external backend service that owns
// all durable platform state.
type UpstreamConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ServiceToken  string `mapstructure:"service_token"`
	Timeout       int    `mapstructure:"timeout"`        // in seconds
	StreamTimeout int    `mapstructure:"stream_timeout"` // in seconds, for SSE relays
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
}

type AuthConfig struct {
	// SessionSecret signs the gateway session JWT. Overridden by Vault when
	// vault.enabled is set.
	SessionSecret   string `mapstructure:"session_secret"`
	SessionTTL      int    `mapstructure:"session_ttl"`      // in seconds
	RefreshTTL      int    `mapstructure:"refresh_ttl"`      // in seconds
	CookieDomain    string `mapstructure:"cookie_domain"`
	CookieSecure    bool   `mapstructure:"cookie_secure"`
	SessionIssuer   string `mapstructure:"session_issuer"`
	SessionAudience string `mapstructure:"session_audience"`
}

func (c *AuthConfig) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

func (c *AuthConfig) RefreshTTLDuration() time.Duration {
	return time.Duration(c.RefreshTTL) * time.Second
}

type WebhookConfig struct {
	// RazorpaySecret is the shared secret for webhook HMAC verification.
	// Overridden by Vault when vault.enabled is set.
	RazorpaySecret string `mapstructure:"razorpay_secret"`
}

type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DefaultRPM int  `mapstructure:"default_rpm"`
	BurstSize  int  `mapstructure:"burst_size"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	EventTopic   string   `mapstructure:"event_topic"`
	BatchSize    int      `mapstructure:"batch_size"`
	BatchTimeout int      `mapstructure:"batch_timeout"` // in milliseconds
	RequiredAcks int      `mapstructure:"required_acks"`
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
}

type CacheConfig struct {
	DashboardTTL  int `mapstructure:"dashboard_ttl"`   // in seconds
	VaultAssetTTL int `mapstructure:"vault_asset_ttl"` // in seconds
	LocalTTL      int `mapstructure:"local_ttl"`       // in seconds, L1 go-cache
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if !c.Vault.Enabled && c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is required when vault is disabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
