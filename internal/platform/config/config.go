package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "guardian/pkg/platform/strings"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Notification drivers.
const (
	NotifyLog   = "log"
	NotifyKafka = "kafka"
)

// Config is the full process configuration, read once in main.
type Config struct {
	Server Server
	Log    Log
	Store  Store
	Redis  RedisConfig
	Kafka  KafkaConfig
	Notify Notify
	Limit  RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	SigningKey    string
	TokenIssuer   string
	TokenAudience string
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Store selects where directory, policy and ledger live.
type Store struct {
	Driver      string
	DatabaseURL string
	LedgerSeed  int64
	SeedFile    string
}

// RedisConfig enables the distributed request lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// KafkaConfig is used by the kafka notification driver.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Notify controls the notification boundary and its retry budget.
type Notify struct {
	Driver            string
	Attempts          int
	BaseDelay         time.Duration
	BreakerThreshold  int
	BreakerCooldown   time.Duration
	Timeout           time.Duration
	ITSupportEmail    string
	HROnboardingEmail string
}

// RateLimit caps API requests per caller. Requests of 0 disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var p parser
	cfg := Config{
		Server: Server{
			Addr: p.str("GUARDIAN_ADDR", ":8080"),
			// Use a default for development - should be overridden in production
			SigningKey:    p.str("GUARDIAN_API_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenIssuer:   p.str("GUARDIAN_API_ISSUER", "guardian-frontend"),
			TokenAudience: p.str("GUARDIAN_API_AUDIENCE", "guardian-api"),
		},
		Log: Log{
			Level:  p.str("GUARDIAN_LOG_LEVEL", "info"),
			Format: p.str("GUARDIAN_LOG_FORMAT", "json"),
		},
		Store: Store{
			Driver:      p.str("GUARDIAN_STORE_DRIVER", DriverMemory),
			DatabaseURL: p.str("DATABASE_URL", ""),
			LedgerSeed:  p.num64("GUARDIAN_LEDGER_SEED", 1001),
			SeedFile:    p.str("GUARDIAN_SEED_FILE", ""),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.num("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      p.dur("REDIS_LOCK_TTL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: p.list("KAFKA_BROKERS"),
			Topic:   p.str("GUARDIAN_NOTIFY_TOPIC", "guardian.notifications"),
		},
		Notify: Notify{
			Driver:            p.str("GUARDIAN_NOTIFY_DRIVER", NotifyLog),
			Attempts:          p.num("GUARDIAN_NOTIFY_ATTEMPTS", 3),
			BaseDelay:         p.dur("GUARDIAN_NOTIFY_BASE_DELAY", 2*time.Second),
			BreakerThreshold:  p.num("GUARDIAN_NOTIFY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:   p.dur("GUARDIAN_NOTIFY_BREAKER_COOLDOWN", time.Minute),
			Timeout:           p.dur("GUARDIAN_NOTIFY_TIMEOUT", time.Minute),
			ITSupportEmail:    p.str("GUARDIAN_IT_SUPPORT_EMAIL", "it-support@company.demo"),
			HROnboardingEmail: p.str("GUARDIAN_HR_ONBOARDING_EMAIL", "hr-onboarding@company.demo"),
		},
		Limit: RateLimit{
			Requests: p.num("GUARDIAN_RATE_LIMIT_REQUESTS", 120),
			Window:   p.dur("GUARDIAN_RATE_LIMIT_WINDOW", time.Minute),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown GUARDIAN_STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Notify.Driver {
	case NotifyLog:
	case NotifyKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for notify driver %q", NotifyKafka)
		}
	default:
		return fmt.Errorf("unknown GUARDIAN_NOTIFY_DRIVER %q", c.Notify.Driver)
	}

	if c.Notify.Attempts < 1 {
		return fmt.Errorf("GUARDIAN_NOTIFY_ATTEMPTS must be at least 1")
	}
	if c.Limit.Requests < 0 {
		return fmt.Errorf("GUARDIAN_RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Limit.Requests > 0 && c.Limit.Window <= 0 {
		return fmt.Errorf("GUARDIAN_RATE_LIMIT_WINDOW must be positive")
	}
	if c.Store.LedgerSeed < 1 {
		return fmt.Errorf("GUARDIAN_LEDGER_SEED must be positive")
	}
	return nil
}

// parser keeps the first conversion error so FromEnv reads top to bottom.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) list(key string) []string {
	return strutil.SplitList(p.str(key, ""), ",")
}

func (p *parser) num(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return v
}

func (p *parser) num64(key string, def int64) int64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return v
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return v
}
