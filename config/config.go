package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	JWTSecret string

	FapshiBaseURL string
	FapshiAPIUser string
	FapshiAPIKey  string
	// FapshiTimeout bounds every gateway round-trip.
	FapshiTimeout time.Duration

	RedisURL string // optional; empty disables the idempotency store

	KafkaBrokers      string
	PaymentEventTopic string

	SNSTopicARN string // optional; empty disables SNS publishing

	CORSOrigins []string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Africa/Douala"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		FapshiBaseURL: getEnv("FAPSHI_BASE_URL", "https://live.fapshi.com"),
		FapshiAPIUser: os.Getenv("FAPSHI_API_USER"),
		FapshiAPIKey:  os.Getenv("FAPSHI_API_KEY"),
		FapshiTimeout: getEnvDuration("FAPSHI_TIMEOUT_SECONDS", 15) * time.Second,

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		PaymentEventTopic: getEnv("PAYMENT_EVENT_TOPIC", "payment.events"),

		SNSTopicARN: os.Getenv("PAYMENT_SNS_TOPIC_ARN"),

		CORSOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.FapshiAPIUser == "" || cfg.FapshiAPIKey == "" {
		return nil, fmt.Errorf("FAPSHI_API_USER and FAPSHI_API_KEY are required")
	}
	return cfg, nil
}

// DSN builds the Postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
