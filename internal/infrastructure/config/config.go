package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the climate skill.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Skill     SkillConfig     `yaml:"skill"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Responses ResponsesConfig `yaml:"responses"`
}

// SkillConfig identifies this skill instance on the voice bus.
type SkillConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig names the bus topics the skill listens and replies on.
// Empty values fall back to the built-in topic scheme.
type MQTTTopicsConfig struct {
	Intents         string `yaml:"intents"`
	RegistryChanged string `yaml:"registry_changed"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ResolverConfig tunes fuzzy matching of spoken device and room names.
type ResolverConfig struct {
	// FuzzyThreshold is the minimum similarity (0..1) a fuzzy candidate
	// must reach to be kept.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// AmbiguityMargin is how close (in score) two fuzzy candidates must be
	// to count as equally ranked. Must be in (0, 1).
	AmbiguityMargin float64 `yaml:"ambiguity_margin"`
}

// DispatchConfig bounds command dispatch to the device-control channel.
type DispatchConfig struct {
	// MaxConcurrent limits outstanding device commands for one group request.
	MaxConcurrent int `yaml:"max_concurrent"`

	// TimeoutMS is the per-device acknowledgement deadline in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"`

	// RatePerSecond caps commands per second across all requests. 0 disables.
	RatePerSecond float64 `yaml:"rate_per_second"`

	// AwaitAck makes dispatch wait for a device acknowledgement rather than
	// completing once the broker accepts the publish.
	AwaitAck bool `yaml:"await_ack"`
}

// ResponsesConfig locates reply templates.
type ResponsesConfig struct {
	// TemplateDir optionally overrides built-in templates by file name.
	TemplateDir string `yaml:"template_dir"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_DISPATCH_TIMEOUT_MS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Validated configuration
//   - error: If the file cannot be read, parsed, or fails validation
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Skill: SkillConfig{
			ID:   "climate",
			Name: "Climate Skill",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-climate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8095,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Resolver: ResolverConfig{
			FuzzyThreshold:  0.6,
			AmbiguityMargin: 0.05,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: 4,
			TimeoutMS:     5000,
			AwaitAck:      true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Dispatch
	if v := os.Getenv("GRAYLOGIC_DISPATCH_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.TimeoutMS = ms
		}
	}

	// Responses
	if v := os.Getenv("GRAYLOGIC_RESPONSES_TEMPLATE_DIR"); v != "" {
		cfg.Responses.TemplateDir = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together.
//
// Returns:
//   - error: nil if valid, or one error listing every problem
func (c *Config) Validate() error {
	var errs []string

	if c.Skill.ID == "" {
		errs = append(errs, "skill.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Resolver.FuzzyThreshold <= 0 || c.Resolver.FuzzyThreshold > 1 {
		errs = append(errs, "resolver.fuzzy_threshold must be in (0, 1]")
	}
	if c.Resolver.AmbiguityMargin <= 0 || c.Resolver.AmbiguityMargin >= 1 {
		errs = append(errs, "resolver.ambiguity_margin must be in (0, 1)")
	}

	if c.Dispatch.MaxConcurrent < 1 {
		errs = append(errs, "dispatch.max_concurrent must be at least 1")
	}
	if c.Dispatch.TimeoutMS < 1 {
		errs = append(errs, "dispatch.timeout_ms must be positive")
	}
	if c.Dispatch.RatePerSecond < 0 {
		errs = append(errs, "dispatch.rate_per_second must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDispatchTimeout returns the per-device dispatch deadline.
func (c *Config) GetDispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutMS) * time.Millisecond
}
