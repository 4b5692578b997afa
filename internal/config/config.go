package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	NotifySinkRedis = "redis"
	NotifySinkHTTP  = "http"
	NotifySinkLog   = "log"
)

type Config struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://*,http://*"`

	CASMaxAttempts    int   `env:"WALLET_CAS_MAX_ATTEMPTS" envDefault:"5"`
	DepositLimitMinor int64 `env:"DEPOSIT_LIMIT_MINOR" envDefault:"10000000"`
	TxListMaxLimit    int   `env:"TX_LIST_MAX_LIMIT" envDefault:"100"`

	// UndoMaxElapsedS bounds how long a compensation keeps retrying lost CAS
	// races. Zero retries until the undo lands.
	UndoMaxElapsedS int `env:"WALLET_UNDO_MAX_ELAPSED_S" envDefault:"0"`

	NotifySink        string `env:"NOTIFY_SINK" envDefault:"log"`
	RedisURL          string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	NotifyQueueKey    string `env:"NOTIFY_QUEUE_KEY" envDefault:"wallet:notifications"`
	NotifyWebhookURL  string `env:"NOTIFY_WEBHOOK_URL" envDefault:"http://mock-notifier:8081/events"`
	NotifyBuffer      int    `env:"NOTIFY_BUFFER" envDefault:"256"`
	NotifyWorkers     int    `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyMaxElapsedS int    `env:"NOTIFY_MAX_ELAPSED_S" envDefault:"30"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) NotifyMaxElapsed() time.Duration {
	return time.Duration(c.NotifyMaxElapsedS) * time.Second
}

func (c *Config) UndoMaxElapsed() time.Duration {
	return time.Duration(c.UndoMaxElapsedS) * time.Second
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.NotifySink {
	case NotifySinkRedis, NotifySinkHTTP, NotifySinkLog:
	default:
		return fmt.Errorf("unknown NOTIFY_SINK %q", c.NotifySink)
	}

	if c.CASMaxAttempts < 1 {
		return fmt.Errorf("WALLET_CAS_MAX_ATTEMPTS must be at least 1")
	}
	if c.UndoMaxElapsedS < 0 {
		return fmt.Errorf("WALLET_UNDO_MAX_ELAPSED_S must not be negative")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}
	if c.TxListMaxLimit < 1 {
		return fmt.Errorf("TX_LIST_MAX_LIMIT must be at least 1")
	}
	return nil
}
