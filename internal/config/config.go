package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort string `mapstructure:"app_port"`
	AppEnv  string `mapstructure:"app_env"`

	// Shared secret for server-to-server calls in both directions:
	// outbound session checks against the upstream IdP and inbound
	// sync requests from trusted backends.
	SyncSharedSecret string `mapstructure:"sync_shared_secret"`

	UpstreamBaseURL string        `mapstructure:"upstream_base_url"`
	SyncTimeout     time.Duration `mapstructure:"sync_timeout"`

	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	DatabaseDSN string `mapstructure:"database_dsn"`
}

func Load() Config {
	viper.SetDefault("app_port", "8080")
	viper.SetDefault("app_env", "development")
	viper.SetDefault("sync_timeout", 5*time.Second)
	viper.SetDefault("session_ttl", 30*24*time.Hour)
	viper.SetDefault("cookie_secure", true)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// explicit bindings
	_ = viper.BindEnv("app_port", "APP_PORT")
	_ = viper.BindEnv("app_env", "APP_ENV")
	_ = viper.BindEnv("sync_shared_secret", "SYNC_SHARED_SECRET")
	_ = viper.BindEnv("upstream_base_url", "UPSTREAM_BASE_URL")
	_ = viper.BindEnv("sync_timeout", "SYNC_TIMEOUT")
	_ = viper.BindEnv("session_ttl", "SESSION_TTL")
	_ = viper.BindEnv("cookie_secure", "COOKIE_SECURE")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("database_dsn", "DATABASE_DSN")

	var cfg Config
	_ = viper.Unmarshal(&cfg)

	// Local development runs over plain HTTP, so the Secure cookie
	// attribute has to come off or the browser drops the cookie.
	if cfg.AppEnv == "development" {
		cfg.CookieSecure = false
	}

	return cfg
}
