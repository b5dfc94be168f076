package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Defaults are overlaid by an optional yaml file, then by environment
// variables, so container deployments can stay file-less.
type Config struct {
	ServiceName string
	HTTPPort    string

	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string

	ProviderBaseURL string
	ProviderAPIKey  string

	SessionTTL    time.Duration
	EventDedupTTL time.Duration
	PollInterval  time.Duration

	OutboxBatchSize int

	EnableAccrualConsumer      bool
	EnableConfirmationConsumer bool
}

type configFile struct {
	Service struct {
		Name     string `yaml:"name"`
		HTTPPort string `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresDSN     string   `yaml:"postgres_dsn"`
		RedisURL        string   `yaml:"redis_url"`
		KafkaBrokers    []string `yaml:"kafka_brokers"`
		ProviderBaseURL string   `yaml:"provider_base_url"`
		ProviderAPIKey  string   `yaml:"provider_api_key"`
	} `yaml:"dependencies"`
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName:                "meridian",
		HTTPPort:                   "8080",
		KafkaBrokers:               []string{"localhost:9092"},
		SessionTTL:                 24 * time.Hour,
		EventDedupTTL:              7 * 24 * time.Hour,
		PollInterval:               2 * time.Second,
		OutboxBatchSize:            100,
		EnableAccrualConsumer:      true,
		EnableConfirmationConsumer: true,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if f.Service.Name != "" {
			cfg.ServiceName = f.Service.Name
		}
		if f.Service.HTTPPort != "" {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresDSN != "" {
			cfg.PostgresDSN = f.Dependencies.PostgresDSN
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if brokers := trimNonEmpty(f.Dependencies.KafkaBrokers); len(brokers) > 0 {
			cfg.KafkaBrokers = brokers
		}
		if f.Dependencies.ProviderBaseURL != "" {
			cfg.ProviderBaseURL = f.Dependencies.ProviderBaseURL
		}
		if f.Dependencies.ProviderAPIKey != "" {
			cfg.ProviderAPIKey = f.Dependencies.ProviderAPIKey
		}
	}

	cfg.ServiceName = envOrDefault("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPPort = envOrDefault("HTTP_PORT", cfg.HTTPPort)
	cfg.PostgresDSN = envOrDefault("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.ProviderBaseURL = envOrDefault("PROVIDER_BASE_URL", cfg.ProviderBaseURL)
	cfg.ProviderAPIKey = envOrDefault("PROVIDER_API_KEY", cfg.ProviderAPIKey)
	cfg.SessionTTL = time.Duration(envInt("SESSION_TTL_HOURS", int(cfg.SessionTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.PollInterval = time.Duration(envInt("WORKER_POLL_SECONDS", int(cfg.PollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.EnableAccrualConsumer = envBool("ENABLE_ACCRUAL_CONSUMER", cfg.EnableAccrualConsumer)
	cfg.EnableConfirmationConsumer = envBool("ENABLE_CONFIRMATION_CONSUMER", cfg.EnableConfirmationConsumer)

	return cfg, nil
}

func envOrDefault(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
