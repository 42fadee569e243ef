package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSslMode         string
	DBCreateIfMissing bool
	SQLiteDSN         string

	ExternalAPIURL        string
	ExternalAPITimeout    time.Duration
	ExternalAPIRetryTimes int
	ExternalAPIRetryDelay time.Duration
	ExternalAPIRateLimit  int
	ExternalSourceName    string

	QueueWorkers       int
	JobMaxAttempts     int
	JobBackoff         time.Duration
	JobBackoffStrategy string

	CacheTTL      time.Duration
	CacheCapacity int

	StatusTransitions  string
	RecoverySchedule   string
	RecoveryStaleAfter time.Duration

	LogLevel slog.Level
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set in the
// environment win over it.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from a lookup function, applying defaults for
// unset variables. All parse errors are reported together.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	p := envParser{getenv: getenv}

	cfg := Config{
		HTTPPort: p.str("HTTP_PORT", "8080"),

		DBDriver:          strings.ToLower(p.str("DB_DRIVER", "postgres")),
		DBHost:            p.str("DB_HOST", "localhost"),
		DBPort:            p.str("DB_PORT", "5432"),
		DBUser:            p.str("DB_USER", "postgres"),
		DBPassword:        p.str("DB_PASSWORD", ""),
		DBName:            p.str("DB_NAME", "orderflow"),
		DBSslMode:         p.str("DB_SSLMODE", "disable"),
		DBCreateIfMissing: p.boolean("DB_CREATE_IF_MISSING", true),
		SQLiteDSN:         p.str("SQLITE_DSN", "file:orderflow?mode=memory&cache=shared&_foreign_keys=on"),

		ExternalAPIURL:        p.str("EXTERNAL_API_URL", "http://localhost:3000"),
		ExternalAPITimeout:    p.duration("EXTERNAL_API_TIMEOUT", 30*time.Second),
		ExternalAPIRetryTimes: p.integer("EXTERNAL_API_RETRY_TIMES", 3),
		ExternalAPIRetryDelay: p.duration("EXTERNAL_API_RETRY_DELAY", 100*time.Millisecond),
		ExternalAPIRateLimit:  p.integer("EXTERNAL_API_RATE_LIMIT", 0),
		ExternalSourceName:    p.str("EXTERNAL_SOURCE_NAME", "orderflow"),

		QueueWorkers:       p.integer("QUEUE_WORKERS", 4),
		JobMaxAttempts:     p.integer("JOB_MAX_ATTEMPTS", 3),
		JobBackoff:         p.duration("JOB_BACKOFF", 10*time.Second),
		JobBackoffStrategy: p.str("JOB_BACKOFF_STRATEGY", "linear"),

		CacheTTL:      p.duration("CACHE_TTL", 300*time.Second),
		CacheCapacity: p.integer("CACHE_CAPACITY", 10000),

		StatusTransitions:  p.str("STATUS_TRANSITIONS", "strict"),
		RecoverySchedule:   p.str("RECOVERY_SCHEDULE", "0 * * * * *"),
		RecoveryStaleAfter: p.duration("RECOVERY_STALE_AFTER", 5*time.Minute),

		LogLevel: p.level("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		p.errs = append(p.errs, fmt.Errorf("DB_DRIVER: %q is not postgres or sqlite", cfg.DBDriver))
	}
	if cfg.QueueWorkers < 1 {
		p.errs = append(p.errs, errors.New("QUEUE_WORKERS: must be at least 1"))
	}
	if cfg.JobMaxAttempts < 1 {
		p.errs = append(p.errs, errors.New("JOB_MAX_ATTEMPTS: must be at least 1"))
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PostgresDSN renders the connection string for DBName.
func (c Config) PostgresDSN() string {
	return c.postgresDSN(c.DBName)
}

func (c Config) postgresDSN(dbName string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, dbName, c.DBSslMode)
}

type envParser struct {
	getenv func(string) string
	errs   []error
}

func (p *envParser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *envParser) integer(key string, def int) int {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

func (p *envParser) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return def
	}
	return v
}

// duration accepts Go durations ("30s", "5m") and bare integers as seconds.
func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return def
	}
	return v
}

func (p *envParser) level(key string, def slog.Level) slog.Level {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a log level", key, raw))
		return def
	}
	return lvl
}
