package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the ledger service needs at startup. Values come
// from the environment so main stays lean and deploys stay declarative.
type Config struct {
	Addr string

	// PostgresURL selects the durable ledger/audit stores; empty keeps the
	// service on in-memory stores (development mode).
	PostgresURL string

	// RedisURL selects the Redis deletion-request store; empty keeps it in
	// memory.
	RedisURL string

	// KafkaBrokers enables the audit event sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// PaymentRailURL and SubscriptionAuthorityURL point at the external
	// collaborators; empty wires deterministic in-process fakes.
	PaymentRailURL           string
	SubscriptionAuthorityURL string

	// JWTSigningKey validates bearer tokens on the participant surface.
	JWTSigningKey string

	// AdminTokenHash is the bcrypt hash of the admin token gating the
	// administrative surface.
	AdminTokenHash string

	// AuditBuffer sizes the async audit channel; 0 emits synchronously.
	AuditBuffer int

	// RateLimit caps participant requests per actor per minute; 0 disables
	// the limiter.
	RateLimit int

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                     envOr("REFLEDGER_ADDR", ":8080"),
		PostgresURL:              os.Getenv("REFLEDGER_POSTGRES_URL"),
		RedisURL:                 os.Getenv("REFLEDGER_REDIS_URL"),
		KafkaTopic:               os.Getenv("REFLEDGER_KAFKA_TOPIC"),
		PaymentRailURL:           os.Getenv("REFLEDGER_PAYMENT_RAIL_URL"),
		SubscriptionAuthorityURL: os.Getenv("REFLEDGER_SUBSCRIPTION_AUTHORITY_URL"),
		JWTSigningKey:            envOr("REFLEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminTokenHash:           os.Getenv("REFLEDGER_ADMIN_TOKEN_HASH"),
		ShutdownTimeout:          10 * time.Second,
	}
	if brokers := os.Getenv("REFLEDGER_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if buffer := os.Getenv("REFLEDGER_AUDIT_BUFFER"); buffer != "" {
		if n, err := strconv.Atoi(buffer); err == nil && n > 0 {
			cfg.AuditBuffer = n
		}
	}
	if limit := os.Getenv("REFLEDGER_RATE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			cfg.RateLimit = n
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
