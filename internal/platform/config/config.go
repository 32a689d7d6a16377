package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the process. Every field has
// a development default so a bare `go run` serves from memory.
type Config struct {
	Addr          string
	AdminToken    string
	AdminAccount  string
	JWTSigningKey string

	// EscrowAccount is the ledger account the exchange settles through. It is
	// also the identity the exchange uses when invoking the transfer
	// authority, so it must be placed on the allow-list at startup.
	EscrowAccount string

	// EventBuffer sizes the async notification publisher; zero means
	// synchronous emission.
	EventBuffer int

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig selects the durable registry store when URL is set.
type PostgresConfig struct {
	URL string
}

// RedisConfig selects the redis ledger when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the kafka notification sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the process config from environment variables so main
// stays lean.
func FromEnv() Config {
	return Config{
		Addr:          envOr("CURIO_ADDR", ":8080"),
		AdminToken:    envOr("CURIO_ADMIN_TOKEN", "dev-admin-token"),
		AdminAccount:  envOr("CURIO_ADMIN_ACCOUNT", "admin"),
		JWTSigningKey: envOr("CURIO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		EscrowAccount: envOr("CURIO_ESCROW_ACCOUNT", "exchange-escrow"),
		EventBuffer:   envInt("CURIO_EVENT_BUFFER", 256),
		Postgres: PostgresConfig{
			URL: os.Getenv("CURIO_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CURIO_REDIS_URL"),
			PoolSize:     envInt("CURIO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CURIO_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("CURIO_KAFKA_BROKERS")),
			Topic:   envOr("CURIO_KAFKA_TOPIC", "curio.events"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
