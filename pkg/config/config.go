// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Glossary, Redis, Kafka, Postgres, Changelog, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Glossary  GlossaryConfig  `yaml:"glossary"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Changelog ChangelogConfig `yaml:"changelog"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. CORSOrigins may call the API
// from a browser page ("*" allows any). AdminRateLimit caps reload and
// cache invalidation calls per client per minute.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	AdminRateLimit  int           `yaml:"adminRateLimit"`
}

// GlossaryConfig controls where term documents live and how content is
// scanned for them.
type GlossaryConfig struct {
	TermsDir             string        `yaml:"termsDir"`
	PalettePath          string        `yaml:"palettePath"`
	ScanFields           []string      `yaml:"scanFields"`
	MaxHighlights        int           `yaml:"maxHighlights"`
	MuteTags             string        `yaml:"muteTags"`
	MaxSingleWordLength  int           `yaml:"maxSingleWordLength"`
	ShipIndexIfNoMatches bool          `yaml:"shipIndexIfNoMatches"`
	ShipIndexLimit       int           `yaml:"shipIndexLimit"`
	Watch                bool          `yaml:"watch"`
	WatchDebounce        time.Duration `yaml:"watchDebounce"`
	Fuzzy                FuzzyConfig   `yaml:"fuzzy"`
}

// FuzzyConfig bounds near-miss matching.
type FuzzyConfig struct {
	Enabled      bool `yaml:"enabled"`
	MinLength    int  `yaml:"minLength"`
	MaxAdditions int  `yaml:"maxAdditions"`
	MaxDistance  int  `yaml:"maxDistance"`
}

// RedisConfig holds Redis connection parameters and the keys under which the
// sync client publishes its connectivity state.
type RedisConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	PoolSize      int           `yaml:"poolSize"`
	LiveKeyPrefix string        `yaml:"liveKeyPrefix"`
	PollInterval  time.Duration `yaml:"pollInterval"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MatchEvents     string `yaml:"matchEvents"`
	GlossaryUpdates string `yaml:"glossaryUpdates"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ChangelogConfig selects where reload diffs are recorded.
type ChangelogConfig struct {
	Backend  string `yaml:"backend"`
	BoltPath string `yaml:"boltPath"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

const (
	ChangelogBolt     = "bolt"
	ChangelogPostgres = "postgres"
	ChangelogNone     = "none"
)

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the defaults used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AdminRateLimit:  30,
		},
		Glossary: GlossaryConfig{
			TermsDir:             "user_files/terms",
			PalettePath:          "user_files/_state/tags.json",
			ScanFields:           []string{"Front", "Back", "Extra"},
			MaxHighlights:        100,
			MaxSingleWordLength:  40,
			ShipIndexIfNoMatches: true,
			ShipIndexLimit:       3000,
			Watch:                true,
			WatchDebounce:        250 * time.Millisecond,
			Fuzzy: FuzzyConfig{
				Enabled:      true,
				MinLength:    5,
				MaxAdditions: 6,
				MaxDistance:  1,
			},
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			PoolSize:      10,
			LiveKeyPrefix: "glossary:live:",
			PollInterval:  5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "glossary-engine",
			Topics: KafkaTopics{
				MatchEvents:     "glossary.match-events",
				GlossaryUpdates: "glossary.updates",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "glossary",
			User:            "glossary",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Changelog: ChangelogConfig{
			Backend:  ChangelogBolt,
			BoltPath: "user_files/_state/changelog.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	g := c.Glossary
	if g.TermsDir == "" {
		return fmt.Errorf("glossary.termsDir is required")
	}
	if g.MaxHighlights < 1 {
		return fmt.Errorf("glossary.maxHighlights must be positive, got %d", g.MaxHighlights)
	}
	if g.MaxSingleWordLength < 1 {
		return fmt.Errorf("glossary.maxSingleWordLength must be positive, got %d", g.MaxSingleWordLength)
	}
	if g.Fuzzy.MinLength < 1 || g.Fuzzy.MaxAdditions < 0 || g.Fuzzy.MaxDistance < 0 {
		return fmt.Errorf("glossary.fuzzy: minLength must be positive and maxAdditions/maxDistance non-negative")
	}
	if c.Server.AdminRateLimit < 1 {
		return fmt.Errorf("server.adminRateLimit must be positive, got %d", c.Server.AdminRateLimit)
	}
	switch c.Changelog.Backend {
	case ChangelogBolt, ChangelogPostgres, ChangelogNone:
	default:
		return fmt.Errorf("changelog.backend must be one of bolt, postgres, none; got %q", c.Changelog.Backend)
	}
	return nil
}

// applyEnvOverrides reads GLOSSARY_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GLOSSARY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GLOSSARY_TERMS_DIR"); v != "" {
		cfg.Glossary.TermsDir = v
	}
	if v := os.Getenv("GLOSSARY_PALETTE_PATH"); v != "" {
		cfg.Glossary.PalettePath = v
	}
	if v, ok := os.LookupEnv("GLOSSARY_SCAN_FIELDS"); ok {
		cfg.Glossary.ScanFields = SplitList(v)
	}
	if v, ok := os.LookupEnv("GLOSSARY_MUTE_TAGS"); ok {
		cfg.Glossary.MuteTags = v
	}
	if v := os.Getenv("GLOSSARY_MAX_HIGHLIGHTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Glossary.MaxHighlights = n
		}
	}
	if v := os.Getenv("GLOSSARY_FUZZY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Glossary.Fuzzy.Enabled = b
		}
	}
	if v := os.Getenv("GLOSSARY_FUZZY_MIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Glossary.Fuzzy.MinLength = n
		}
	}
	if v := os.Getenv("GLOSSARY_FUZZY_MAX_ADD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Glossary.Fuzzy.MaxAdditions = n
		}
	}
	if v := os.Getenv("GLOSSARY_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GLOSSARY_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GLOSSARY_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("GLOSSARY_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("GLOSSARY_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("GLOSSARY_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("GLOSSARY_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("GLOSSARY_CHANGELOG_BACKEND"); v != "" {
		cfg.Changelog.Backend = v
	}
	if v := os.Getenv("GLOSSARY_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GLOSSARY_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// SplitList splits a comma-separated option into trimmed, non-empty items.
func SplitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
