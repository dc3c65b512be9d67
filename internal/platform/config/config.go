package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config aggregates all runtime configuration so main stays lean.
type Config struct {
	Server   Server
	Consent  Consent
	Signing  Signing
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	LogLevel slog.Level
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Consent bounds issuance TTLs and drives the cleanup janitor.
type Consent struct {
	// Store selects the backing store: memory, redis, or postgres.
	Store           string
	MaxTTL          time.Duration
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// Signing configures the attachment signing collaborator.
type Signing struct {
	// BundlePath points at a PKCS#12 bundle for the local signer. Empty means
	// the deployment wires its own Signer adapter.
	BundlePath     string
	BundlePassword string
	Timeout        time.Duration
}

// RedisConfig configures the optional Redis-backed consent store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional Postgres consent store and the
// audit outbox.
type PostgresConfig struct {
	URL string
}

// KafkaConfig configures the audit outbox worker.
type KafkaConfig struct {
	Brokers     []string
	AuditTopic  string
	PollEvery   time.Duration
	OutboxBatch int
}

// FromEnv builds a Config from PLACET_* environment variables.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr:          envOr("PLACET_ADDR", ":8080"),
			JWTSigningKey: envOr("PLACET_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Consent: Consent{
			Store:           envOr("PLACET_CONSENT_STORE", "memory"),
			MaxTTL:          envDurationOr("PLACET_CONSENT_MAX_TTL", 168*time.Hour),
			DefaultTTL:      envDurationOr("PLACET_CONSENT_DEFAULT_TTL", 72*time.Hour),
			CleanupInterval: envDurationOr("PLACET_CONSENT_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Signing: Signing{
			BundlePath:     os.Getenv("PLACET_SIGNING_BUNDLE"),
			BundlePassword: os.Getenv("PLACET_SIGNING_BUNDLE_PASSWORD"),
			Timeout:        envDurationOr("PLACET_SIGNING_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("PLACET_REDIS_URL"),
			PoolSize:     envIntOr("PLACET_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("PLACET_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("PLACET_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("PLACET_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("PLACET_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("PLACET_POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitNonEmpty(os.Getenv("PLACET_KAFKA_BROKERS")),
			AuditTopic:  envOr("PLACET_KAFKA_AUDIT_TOPIC", "placet.audit"),
			PollEvery:   envDurationOr("PLACET_OUTBOX_POLL_INTERVAL", 5*time.Second),
			OutboxBatch: envIntOr("PLACET_OUTBOX_BATCH", 100),
		},
		LogLevel: parseLevel(envOr("PLACET_LOG_LEVEL", "info")),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
