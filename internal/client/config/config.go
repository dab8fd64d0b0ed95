// Package config loads client settings from flags, DAYBOOK_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/daybook/internal/client/scheduler"
	"github.com/iudanet/daybook/internal/logging"
	"github.com/iudanet/daybook/internal/validation"
)

// EnvPrefix - префикс переменных окружения клиента
const EnvPrefix = "DAYBOOK"

// Backends удаленного хранилища
const (
	BackendHTTP  = "http"
	BackendCouch = "couchdb"
)

// Config - настройки клиента
type Config struct {
	Server string         `mapstructure:"server" validate:"required,url"`
	DB     string         `mapstructure:"db" validate:"required"`
	Log    logging.Config `mapstructure:"log"`
	Watch  WatchConfig    `mapstructure:"watch"`
	Remote RemoteConfig   `mapstructure:"remote"`
	Sync   SyncConfig     `mapstructure:"sync"`
}

// RemoteConfig выбирает удаленное хранилище снимков
type RemoteConfig struct {
	Backend  string `mapstructure:"backend" validate:"oneof=http couchdb"`
	CouchURL string `mapstructure:"couch_url" validate:"required_if=Backend couchdb"`
	CouchDB  string `mapstructure:"couch_db" validate:"required_if=Backend couchdb"`
}

// SyncConfig - задержки планировщика и таймауты
type SyncConfig struct {
	scheduler.Config `mapstructure:",squash"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	ProbeInterval    time.Duration `mapstructure:"probe_interval" validate:"gt=0"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
}

// WatchConfig - каталог зеркала коллекций; пустой отключает зеркало
type WatchConfig struct {
	Dir string `mapstructure:"dir"`
}

// DefaultDir returns $HOME/.daybook, or .daybook when the home dir is unknown
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daybook"
	}
	return filepath.Join(home, ".daybook")
}

// SetDefaults registers every key so that environment overrides are seen by Unmarshal
func SetDefaults(v *viper.Viper) {
	sched := scheduler.DefaultConfig()

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("db", filepath.Join(DefaultDir(), "daybook.db"))
	v.SetDefault("remote.backend", BackendHTTP)
	v.SetDefault("remote.couch_url", "")
	v.SetDefault("remote.couch_db", "daybook")
	v.SetDefault("sync.debounce", sched.Debounce)
	v.SetDefault("sync.login_delay", sched.LoginDelay)
	v.SetDefault("sync.periodic", sched.Periodic)
	v.SetDefault("sync.online_delay", sched.OnlineDelay)
	v.SetDefault("sync.timeout", 20*time.Second)
	v.SetDefault("sync.probe_interval", 5*time.Second)
	v.SetDefault("sync.probe_timeout", 3*time.Second)
	v.SetDefault("watch.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Load reads the config file (explicit path or $HOME/.daybook/config.yaml),
// applies DAYBOOK_* environment variables and validates the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
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
