package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	DispatchModeInProcess = "inprocess"
	DispatchModeRabbitMQ  = "rabbitmq"
)

type Config struct {
	StoreDriver  string `env:"STORE_DRIVER,default=memory"`
	DatabaseDSN  string `env:"DATABASE_DSN"`
	DispatchMode string `env:"DISPATCH_MODE,default=inprocess"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	RedisURL     string `env:"REDIS_URL"`

	RNDCProductionURL  string `env:"RNDC_PRODUCTION_URL,default=http://rndcws.mintransporte.gov.co:8080/soap/IBPMServices"`
	RNDCTestURL        string `env:"RNDC_TEST_URL,default=http://plc.mintransporte.gov.co:8080/soap/IBPMServices"`
	RNDCAllowedHosts   string `env:"RNDC_ALLOWED_HOSTS"`
	RNDCTimeoutSeconds int    `env:"RNDC_TIMEOUT_SECONDS,default=0"`

	RateLimitPerSec   int `env:"RATE_LIMIT_PER_SEC,default=2"`
	BatchPacingMS     int `env:"BATCH_PACING_MS,default=500"`
	WorkerConcurrency int `env:"WORKER_CONCURRENCY,default=4"`
	MaxBatchSize      int `env:"MAX_BATCH_SIZE,default=1000"`
	QueueCapacity     int `env:"QUEUE_CAPACITY,default=256"`

	RecoveryEnabled           bool `env:"RECOVERY_ENABLED,default=false"`
	RecoveryStaleAfterSeconds int  `env:"RECOVERY_STALE_AFTER_SECONDS,default=600"`
	RecoveryIntervalSeconds   int  `env:"RECOVERY_INTERVAL_SECONDS,default=60"`

	PingCacheTTLSeconds int    `env:"PING_CACHE_TTL_SECONDS,default=5"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.DispatchMode = strings.ToLower(strings.TrimSpace(cfg.DispatchMode))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the requirements that depend on the selected store and dispatch mode.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("DATABASE_DSN is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.DispatchMode {
	case DispatchModeInProcess:
	case DispatchModeRabbitMQ:
		if strings.TrimSpace(c.RabbitMQURL) == "" {
			return fmt.Errorf("RABBITMQ_URL is required when DISPATCH_MODE=%s", DispatchModeRabbitMQ)
		}
	default:
		return fmt.Errorf("unsupported DISPATCH_MODE %q", c.DispatchMode)
	}

	for name, raw := range map[string]string{
		"RNDC_PRODUCTION_URL": c.RNDCProductionURL,
		"RNDC_TEST_URL":       c.RNDCTestURL,
	} {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}

	if c.RNDCTimeoutSeconds < 0 {
		return fmt.Errorf("RNDC_TIMEOUT_SECONDS must be >= 0")
	}
	if c.RateLimitPerSec < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be >= 1")
	}
	if c.BatchPacingMS < 0 {
		return fmt.Errorf("BATCH_PACING_MS must be >= 0")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be >= 1")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be >= 1")
	}
	if c.RecoveryEnabled && (c.RecoveryStaleAfterSeconds < 1 || c.RecoveryIntervalSeconds < 1) {
		return fmt.Errorf("RECOVERY_STALE_AFTER_SECONDS and RECOVERY_INTERVAL_SECONDS must be >= 1")
	}
	if c.PingCacheTTLSeconds < 0 {
		return fmt.Errorf("PING_CACHE_TTL_SECONDS must be >= 0")
	}
	return nil
}

// AllowedHosts returns the normalized RNDC host allowlist. Empty means any host.
func (c *Config) AllowedHosts() []string {
	var hosts []string
	for _, part := range strings.Split(c.RNDCAllowedHosts, ",") {
		if host := strings.ToLower(strings.TrimSpace(part)); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func (c *Config) RNDCTimeout() time.Duration {
	return time.Duration(c.RNDCTimeoutSeconds) * time.Second
}

func (c *Config) BatchPacing() time.Duration {
	return time.Duration(c.BatchPacingMS) * time.Millisecond
}

func (c *Config) RecoveryStaleAfter() time.Duration {
	return time.Duration(c.RecoveryStaleAfterSeconds) * time.Second
}

func (c *Config) RecoveryInterval() time.Duration {
	return time.Duration(c.RecoveryIntervalSeconds) * time.Second
}

func (c *Config) PingCacheTTL() time.Duration {
	return time.Duration(c.PingCacheTTLSeconds) * time.Second
}
