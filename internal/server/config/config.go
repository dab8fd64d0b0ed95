// Package config loads server settings from an optional .env file,
// DAYBOOK_SERVER_* environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iudanet/daybook/internal/logging"
	"github.com/iudanet/daybook/internal/server/handlers"
	"github.com/iudanet/daybook/internal/validation"
)

// EnvPrefix - префикс переменных окружения сервера
const EnvPrefix = "DAYBOOK_SERVER"

// DefaultEnvFile читается, если существует
const DefaultEnvFile = ".env"

// Config - настройки сервера
type Config struct {
	Addr            string          `mapstructure:"addr" validate:"required"`
	DB              string          `mapstructure:"db" validate:"required"`
	Log             logging.Config  `mapstructure:"log"`
	JWT             JWTConfig       `mapstructure:"jwt"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CleanupInterval time.Duration   `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// JWTConfig - секрет и время жизни токенов
type JWTConfig struct {
	Secret     string        `mapstructure:"secret" validate:"required,min=16"`
	AccessTTL  time.Duration `mapstructure:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl" validate:"gtfield=AccessTTL"`
}

// Handlers converts the settings into the handlers representation
func (c JWTConfig) Handlers() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:          []byte(c.Secret),
		AccessTokenTTL:  c.AccessTTL,
		RefreshTokenTTL: c.RefreshTTL,
	}
}

// RateLimitConfig ограничивает запросы к /api/v1/auth/* с одного IP
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gt=0"`
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
}

// SetDefaults registers every key so that environment overrides are seen by Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "daybook-server.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("cleanup_interval", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
}

// Load читает envFile (по умолчанию .env, отсутствие не ошибка), затем
// configFile (если задан) и DAYBOOK_SERVER_* переменные, и валидирует результат.
// Переменные из .env не перекрывают уже заданные в окружении.
func Load(v *viper.Viper, envFile, configFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validation.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}
