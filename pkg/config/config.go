package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QUARTERMASTER_APP_ENV" required:"true"`
	Port         string `envconfig:"QUARTERMASTER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUARTERMASTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUARTERMASTER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Path string `envconfig:"QUARTERMASTER_DB_PATH" required:"true"`

	BusyTimeout    time.Duration `envconfig:"QUARTERMASTER_DB_BUSY_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"QUARTERMASTER_DB_MAX_RETRIES" default:"5"`
	RetryBaseDelay time.Duration `envconfig:"QUARTERMASTER_DB_RETRY_BASE_DELAY" default:"100ms"`
}

// DSN renders the sqlite connection string with the concurrency pragmas the
// shared-connection model depends on (WAL, busy timeout, in-memory temp store).
func (db DBConfig) DSN() string {
	busyMS := db.BusyTimeout.Milliseconds()
	if busyMS <= 0 {
		busyMS = 30000
	}
	return fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL&_temp_store=MEMORY&_foreign_keys=on",
		db.Path, busyMS,
	)
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUARTERMASTER_AUTO_MIGRATE" default:"false"`
}
