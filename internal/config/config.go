package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string `mapstructure:"port"`
	AllowedOrigin           string `mapstructure:"allowed_origin"`
	DatabaseURL             string `mapstructure:"database_url"`
	RedisAddr               string `mapstructure:"redis_addr"`
	RedisPassword           string `mapstructure:"redis_password"`
	RedisDB                 int    `mapstructure:"redis_db"`
	ForecastCacheTTLMinutes int    `mapstructure:"forecast_cache_ttl_minutes"`
	ForecastMaxMonths       int    `mapstructure:"forecast_max_months"`
	PersistTimeoutSeconds   int    `mapstructure:"persist_timeout_seconds"`
	AuthSecret              string `mapstructure:"auth_secret"`
	AuthIssuer              string `mapstructure:"auth_issuer"`
	LogLevel                string `mapstructure:"log_level"`
	LogFormat               string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":                       "8080",
	"allowed_origin":             "http://127.0.0.1:3000",
	"database_url":               "",
	"redis_addr":                 "",
	"redis_password":             "",
	"redis_db":                   0,
	"forecast_cache_ttl_minutes": 180,
	"forecast_max_months":        36,
	"persist_timeout_seconds":    5,
	"auth_secret":                "",
	"auth_issuer":                "",
	"log_level":                  "info",
	"log_format":                 "json",
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override it.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.ForecastCacheTTLMinutes < 1 {
		cfg.ForecastCacheTTLMinutes = 180
	}
	if cfg.ForecastMaxMonths < 1 || cfg.ForecastMaxMonths > 36 {
		cfg.ForecastMaxMonths = 36
	}
	if cfg.PersistTimeoutSeconds < 1 {
		cfg.PersistTimeoutSeconds = 5
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) ForecastCacheTTL() time.Duration {
	return time.Duration(c.ForecastCacheTTLMinutes) * time.Minute
}

func (c Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutSeconds) * time.Second
}
