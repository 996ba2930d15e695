package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	domainconfig "mnemo/domain/config"
	"mnemo/pkg/utils"
)

// Store driver names
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration.
// Environment variables take precedence over the optional YAML file
// pointed to by MNEMO_CONFIG.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development production test"`

	// Storage
	StoreDriver   string `yaml:"store_driver" validate:"oneof=memory dynamodb"`
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	DateIndexName string `yaml:"date_index_name"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Memory tuning overrides applied on top of the environment preset
	Memory MemoryOverrides `yaml:"memory"`
}

// MemoryOverrides are the YAML-tunable business rules. Zero values
// leave the preset untouched.
type MemoryOverrides struct {
	Weights             *domainconfig.SalienceWeights `yaml:"weights"`
	RecencyHalfLifeHrs  int                           `yaml:"recency_half_life_hours" validate:"gte=0"`
	MaxConnections      int                           `yaml:"max_connections" validate:"gte=0"`
	MinReflectionEvents int                           `yaml:"min_reflection_events" validate:"gte=0"`
	RetentionDays       int                           `yaml:"retention_days" validate:"gte=0"`
}

// LoadConfig loads configuration from the YAML file (if any) and the
// environment, then validates it
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:   "development",
		StoreDriver:   DriverMemory,
		AWSRegion:     "us-west-2",
		DynamoDBTable: "mnemo-events",
		DateIndexName: "DateIndex",
		LogLevel:      "info",
	}

	if path := os.Getenv("MNEMO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", cfg.DynamoDBTable))
	cfg.DateIndexName = getEnv("DATE_INDEX_NAME", cfg.DateIndexName)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Memory.RetentionDays = getEnvInt("RETENTION_DAYS", cfg.Memory.RetentionDays)
	cfg.Memory.MaxConnections = getEnvInt("MAX_CONNECTIONS", cfg.Memory.MaxConnections)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks structural constraints and driver requirements
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StoreDriver == DriverDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required with the dynamodb driver")
	}
	if c.Memory.Weights != nil {
		if err := c.Memory.Weights.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MemoryConfig builds the domain configuration for this environment
// with any overrides applied
func (c *Config) MemoryConfig() (*domainconfig.MemoryConfig, error) {
	mc := domainconfig.LoadMemoryConfig(c.Environment)

	if c.Memory.Weights != nil {
		mc.Weights = *c.Memory.Weights
	}
	if c.Memory.RecencyHalfLifeHrs > 0 {
		mc.RecencyHalfLife = time.Duration(c.Memory.RecencyHalfLifeHrs) * time.Hour
	}
	if c.Memory.MaxConnections > 0 {
		mc.MaxConnections = c.Memory.MaxConnections
	}
	if c.Memory.MinReflectionEvents > 0 {
		mc.MinReflectionEvents = c.Memory.MinReflectionEvents
	}
	if c.Memory.RetentionDays > 0 {
		mc.RetentionDays = c.Memory.RetentionDays
	}

	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
