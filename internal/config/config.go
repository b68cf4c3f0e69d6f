// Package config loads application configuration from a YAML file with
// environment variable overrides. A .env file is honored for local
// development; real environment variables win in deployed environments.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/crm-engine/internal/transmit"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Segment  SegmentConfig  `yaml:"segment"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Transmit TransmitConfig `yaml:"transmit"`
	AI       AIConfig       `yaml:"ai"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL settings. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	SeedDemo bool   `yaml:"seed_demo"`
}

// RedisConfig holds the pub/sub broker settings. An empty address selects
// the in-process bus.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SegmentConfig holds evaluator settings.
type SegmentConfig struct {
	// EmptyGroupMatchesAll controls whether a segment with no rules selects
	// the whole customer base.
	EmptyGroupMatchesAll *bool `yaml:"empty_group_matches_all"`
}

// DispatchConfig shapes the campaign batch loop.
type DispatchConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchDelayMS int `yaml:"batch_delay_ms"`
}

// BatchDelay returns the inter-batch pause as a duration.
func (d DispatchConfig) BatchDelay() time.Duration {
	return time.Duration(d.BatchDelayMS) * time.Millisecond
}

// TransmitConfig selects and tunes the delivery vendor.
type TransmitConfig struct {
	// Vendor is "simulator", "http" or "ses".
	Vendor string `yaml:"vendor"`
	// VendorURL is the HTTP vendor's batch endpoint.
	VendorURL string `yaml:"vendor_url"`
	// SuccessRate is the simulator's delivery probability.
	SuccessRate float64 `yaml:"success_rate"`
	// Seed fixes the simulator's randomness; 0 means time-seeded.
	Seed int64              `yaml:"seed"`
	SES  transmit.SESConfig `yaml:"ses"`
}

// AIConfig holds the Bedrock settings. Disabled means fallback-only assists.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 10
	}
	if cfg.Dispatch.BatchDelayMS == 0 {
		cfg.Dispatch.BatchDelayMS = 100
	}
	if cfg.Transmit.Vendor == "" {
		cfg.Transmit.Vendor = "simulator"
	}
	if cfg.Transmit.SuccessRate == 0 {
		cfg.Transmit.SuccessRate = 0.9
	}
	if cfg.AI.Region == "" {
		cfg.AI.Region = "us-east-1"
	}
}

// EmptyGroupMatchesAll resolves the segment evaluator flag, defaulting to
// true.
func (cfg *Config) EmptyGroupMatchesAll() bool {
	if cfg.Segment.EmptyGroupMatchesAll == nil {
		return true
	}
	return *cfg.Segment.EmptyGroupMatchesAll
}

// LoadFromEnv loads configuration with environment variable overrides.
// It reads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in deployed environments. A missing config
// file is not an error; defaults plus environment cover everything.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TRANSMIT_VENDOR"); v != "" {
		cfg.Transmit.Vendor = v
	}
	if v := os.Getenv("TRANSMIT_VENDOR_URL"); v != "" {
		cfg.Transmit.VendorURL = v
	}
	if v := os.Getenv("TRANSMIT_SUCCESS_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Transmit.SuccessRate = rate
		}
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Transmit.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Transmit.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Transmit.SES.Region = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.Transmit.SES.FromEmail = v
	}
	if v := os.Getenv("AI_ENABLED"); v != "" {
		cfg.AI.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AI_MODEL_ID"); v != "" {
		cfg.AI.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AI.Region = v
	}

	return cfg, nil
}
