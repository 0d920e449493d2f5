// Package config provides unified configuration loading for osteon.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
	"github.com/nvandessel/osteon/internal/crosslink"
	"github.com/nvandessel/osteon/internal/enzyme"
	"github.com/nvandessel/osteon/internal/tissue"
)

// Config contains all osteon configuration settings.
type Config struct {
	// Simulation selects model policies and stepping.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Environment is the default chemical environment of a run.
	Environment EnvironmentConfig `json:"environment" yaml:"environment"`

	// Store selects where finished runs are persisted.
	Store StoreConfig `json:"store" yaml:"store"`

	// Export selects where JSON reports are written.
	Export ExportConfig `json:"export" yaml:"export"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Server configures the HTTP API.
	Server ServerConfig `json:"server" yaml:"server"`
}

// SimulationConfig selects model policies.
type SimulationConfig struct {
	// StepDays is the default step length in days.
	StepDays float64 `json:"step_days" yaml:"step_days"`

	// FactorPolicy is "clamp" (default) or "raw".
	FactorPolicy string `json:"factor_policy" yaml:"factor_policy"`

	// Maturation is "from-base" (default for coupled samples, also spelled
	// "from_base") or "compounding".
	Maturation string `json:"maturation" yaml:"maturation"`

	// Activation is "retry" (default) or "legacy".
	Activation string `json:"activation" yaml:"activation"`

	// EnzymeExpression is the lysyl oxidase expression level.
	EnzymeExpression float64 `json:"enzyme_expression" yaml:"enzyme_expression"`

	// MineralizationRate is the primary-stage mineral deposition in percent per day.
	MineralizationRate float64 `json:"mineralization_rate" yaml:"mineralization_rate"`
}

// Tissue converts the section into a coupled sample configuration.
func (s SimulationConfig) Tissue() tissue.Config {
	return tissue.Config{
		Policy:             biology.ParseFactorPolicy(s.FactorPolicy),
		Maturation:         crosslink.ParseMaturationMode(s.Maturation),
		Activation:         enzyme.ParseActivationPolicy(s.Activation),
		EnzymeExpression:   s.EnzymeExpression,
		MineralizationRate: s.MineralizationRate,
	}
}

// EnvironmentConfig is the default chemical environment.
type EnvironmentConfig struct {
	PH          float64 `json:"ph" yaml:"ph"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Oxygen      float64 `json:"oxygen" yaml:"oxygen"`
}

// Conditions converts the section into biology conditions.
func (e EnvironmentConfig) Conditions() biology.Conditions {
	return biology.Conditions{PH: e.PH, Temperature: e.Temperature, Oxygen: e.Oxygen}
}

// StoreConfig selects the run store.
type StoreConfig struct {
	// Driver is "memory", "sqlite" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver"`

	// Dir holds the SQLite database file.
	Dir string `json:"dir" yaml:"dir"`

	// DSN is the Postgres connection string. Supports ${VAR} syntax.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// RedactedDSN returns the DSN with any password masked.
func (s StoreConfig) RedactedDSN() string {
	if s.DSN == "" {
		return ""
	}
	u, err := url.Parse(s.DSN)
	if err != nil || u.User == nil {
		return "(set)"
	}
	return u.Redacted()
}

// String implements fmt.Stringer to prevent accidental DSN logging.
func (s StoreConfig) String() string {
	return fmt.Sprintf("StoreConfig{Driver:%s, Dir:%s, DSN:%s}", s.Driver, s.Dir, s.RedactedDSN())
}

// ExportConfig selects the report sink.
type ExportConfig struct {
	// Driver is "" (disabled), "fs" or "s3".
	Driver string `json:"driver" yaml:"driver"`

	// Dir is the target directory for the fs driver.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Bucket, Region, Endpoint and PathStyle configure the s3 driver.
	// Endpoint is optional and targets S3-compatible servers.
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// LoggingConfig configures osteon's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to <data dir>/events.jsonl.
	Level string `json:"level" yaml:"level"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// DataDir is the directory holding config, database and event log.
func DataDir() string {
	if v := os.Getenv("OSTEON_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".osteon"
	}
	return filepath.Join(home, ".osteon")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			StepDays:           1,
			FactorPolicy:       biology.ClampFactors.String(),
			Maturation:         crosslink.FromBase.String(),
			Activation:         enzyme.RetryActivation.String(),
			EnzymeExpression:   constants.DefaultEnzymeExpression,
			MineralizationRate: constants.DefaultMineralizationRate,
		},
		Environment: EnvironmentConfig{
			PH:          constants.OptimalPH,
			Temperature: constants.OptimalTemperature,
			Oxygen:      constants.DefaultOxygen,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Dir:    DataDir(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> <data dir>/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	configPath := filepath.Join(DataDir(), "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.DSN = expandEnvVars(config.Store.DSN)

	return config, nil
}

// A step lasts at least a second and fits in a time.Duration.
const (
	minStepDays = 1.0 / 86400
	maxStepDays = 100_000.0
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	s := c.Simulation
	if !biology.Finite(s.StepDays) || s.StepDays <= 0 {
		return fmt.Errorf("step_days must be positive, got %v", s.StepDays)
	}
	if s.StepDays < minStepDays || s.StepDays > maxStepDays {
		return fmt.Errorf("step_days must be between one second and %v days, got %v", maxStepDays, s.StepDays)
	}
	if err := oneOf("factor_policy", s.FactorPolicy, "clamp", "raw"); err != nil {
		return err
	}
	if err := oneOf("maturation", s.Maturation, "compounding", "from-base", "from_base"); err != nil {
		return err
	}
	if err := oneOf("activation", s.Activation, "retry", "legacy"); err != nil {
		return err
	}
	if !biology.Finite(s.EnzymeExpression) || s.EnzymeExpression < 0 {
		return fmt.Errorf("enzyme_expression must be non-negative, got %v", s.EnzymeExpression)
	}
	if !biology.Finite(s.MineralizationRate) || s.MineralizationRate < 0 {
		return fmt.Errorf("mineralization_rate must be non-negative, got %v", s.MineralizationRate)
	}

	if err := c.Environment.Conditions().Validate(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if err := oneOf("store driver", c.Store.Driver, "memory", "sqlite", "postgres"); err != nil {
		return err
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store driver postgres requires a dsn")
	}

	switch c.Export.Driver {
	case "", "none":
	case "fs":
		if c.Export.Dir == "" {
			return fmt.Errorf("export driver fs requires a dir")
		}
	case "s3":
		if c.Export.Bucket == "" {
			return fmt.Errorf("export driver s3 requires a bucket")
		}
	default:
		return fmt.Errorf("invalid export driver: %s (valid: fs, s3, none, or empty)", c.Export.Driver)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

func oneOf(field, value string, valid ...string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (valid: %s)", field, value, strings.Join(valid, ", "))
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OSTEON_FACTOR_POLICY"); v != "" {
		config.Simulation.FactorPolicy = v
	}
	if v := os.Getenv("OSTEON_MATURATION"); v != "" {
		config.Simulation.Maturation = v
	}
	if v := os.Getenv("OSTEON_ACTIVATION"); v != "" {
		config.Simulation.Activation = v
	}
	setFloat("OSTEON_STEP_DAYS", &config.Simulation.StepDays)
	setFloat("OSTEON_ENZYME_EXPRESSION", &config.Simulation.EnzymeExpression)
	setFloat("OSTEON_MINERALIZATION_RATE", &config.Simulation.MineralizationRate)

	setFloat("OSTEON_PH", &config.Environment.PH)
	setFloat("OSTEON_TEMPERATURE", &config.Environment.Temperature)
	setFloat("OSTEON_OXYGEN", &config.Environment.Oxygen)

	if v := os.Getenv("OSTEON_STORE_DRIVER"); v != "" {
		config.Store.Driver = v
	}
	if v := os.Getenv("OSTEON_STORE_DIR"); v != "" {
		config.Store.Dir = v
	}
	if v := os.Getenv("OSTEON_DATABASE_URL"); v != "" {
		config.Store.DSN = v
	}

	if v := os.Getenv("OSTEON_EXPORT_DRIVER"); v != "" {
		config.Export.Driver = v
	}
	if v := os.Getenv("OSTEON_EXPORT_DIR"); v != "" {
		config.Export.Dir = v
	}
	if v := os.Getenv("OSTEON_S3_BUCKET"); v != "" {
		config.Export.Bucket = v
	}
	if v := os.Getenv("OSTEON_S3_ENDPOINT"); v != "" {
		config.Export.Endpoint = v
	}
	if v := os.Getenv("OSTEON_S3_PATH_STYLE"); v != "" {
		config.Export.PathStyle = v == "true" || v == "1"
	}
	// AWS_REGION is the SDK's own variable; honor it when no region is configured.
	if v := os.Getenv("OSTEON_S3_REGION"); v != "" {
		config.Export.Region = v
	} else if v := os.Getenv("AWS_REGION"); v != "" && config.Export.Region == "" {
		config.Export.Region = v
	}

	if v := os.Getenv("OSTEON_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("OSTEON_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
