// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string
	DBPath            string
	SecretKey         []byte // 32-byte AES-256 key; nil disables provider key storage.
	CredlyBaseURL     string
	AccredibleBaseURL string
	ProviderTimeout   time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	SweepInterval     time.Duration // Zero disables the propagation sweeper.
	SeedFile          string
}

// HasSecretKey reports whether provider API keys can be stored and read.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// HasKafka reports whether badge events should be published to Kafka.
func (c *Config) HasKafka() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. Defaults: BADGEHUB_LISTEN_ADDR (127.0.0.1:8080),
// BADGEHUB_DB_PATH (badgehub.db), BADGEHUB_PROVIDER_TIMEOUT (30s),
// BADGEHUB_KAFKA_TOPIC (badge-events), BADGEHUB_SWEEP_INTERVAL (15m).
// BADGEHUB_SECRET_KEY must be 64 hex characters when set.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("BADGEHUB_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "badgehub.db"
	if v, ok := os.LookupEnv("BADGEHUB_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v := os.Getenv("BADGEHUB_SECRET_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("BADGEHUB_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("BADGEHUB_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	providerTimeout, err := durationEnv("BADGEHUB_PROVIDER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if providerTimeout <= 0 {
		return nil, fmt.Errorf("BADGEHUB_PROVIDER_TIMEOUT must be positive, got %s", providerTimeout)
	}

	sweepInterval, err := durationEnv("BADGEHUB_SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	if sweepInterval < 0 {
		return nil, fmt.Errorf("BADGEHUB_SWEEP_INTERVAL must not be negative, got %s", sweepInterval)
	}

	kafkaBrokers := []string{}
	if v, ok := os.LookupEnv("BADGEHUB_KAFKA_BROKERS"); ok && v != "" {
		for _, broker := range strings.Split(v, ",") {
			broker = strings.TrimSpace(broker)
			if broker != "" {
				kafkaBrokers = append(kafkaBrokers, broker)
			}
		}
	}

	kafkaTopic := "badge-events"
	if v, ok := os.LookupEnv("BADGEHUB_KAFKA_TOPIC"); ok && v != "" {
		kafkaTopic = v
	}

	return &Config{
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
		SecretKey:         secretKey,
		CredlyBaseURL:     os.Getenv("BADGEHUB_CREDLY_BASE_URL"),
		AccredibleBaseURL: os.Getenv("BADGEHUB_ACCREDIBLE_BASE_URL"),
		ProviderTimeout:   providerTimeout,
		KafkaBrokers:      kafkaBrokers,
		KafkaTopic:        kafkaTopic,
		SweepInterval:     sweepInterval,
		SeedFile:          os.Getenv("BADGEHUB_SEED_FILE"),
	}, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}
