// Package config loads ledger process configuration from an optional YAML
// file, then from the environment (and a .env file when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/erp-ledger-core/internal/ledger"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the top-level ledger.yaml configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Kafka KafkaConfig `yaml:"kafka"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects and locates the ledger store.
type StoreConfig struct {
	Kind        string `yaml:"kind"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns a Config for a throwaway in-memory ledger.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Kind: StoreMemory},
		Kafka: KafkaConfig{Topic: ledger.DefaultTopic},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (skipped when blank) over the defaults, then applies
// LEDGER_* environment overrides. A .env file is loaded from envPath if
// given, otherwise from the working directory if one exists.
func Load(path string, envPath ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Store.Kind, "LEDGER_STORE")
	setString(&c.Store.DatabaseURL, "LEDGER_DATABASE_URL")
	setString(&c.Store.SQLitePath, "LEDGER_SQLITE_PATH")
	setString(&c.Kafka.Topic, "LEDGER_KAFKA_TOPIC")
	setString(&c.Log.Level, "LEDGER_LOG_LEVEL")
	setString(&c.Log.Format, "LEDGER_LOG_FORMAT")
	if v, ok := os.LookupEnv("LEDGER_KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the store kind and the settings it needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Kind {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("LEDGER_DATABASE_URL is required for the postgres store"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("LEDGER_SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}
