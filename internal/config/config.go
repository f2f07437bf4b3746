// Package config provides configuration structures and defaults for the usdlog tools
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g. USDLOG_GAPS_STEP_MODE
const EnvPrefix = "USDLOG"

// Config represents the complete application configuration
type Config struct {
	Decode  DecodeConfig  `mapstructure:"decode" yaml:"decode"`   // Binary log decoding
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`   // Output files
	Gaps    GapsConfig    `mapstructure:"gaps" yaml:"gaps"`       // Missing tick detection
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"` // Logging configuration
}

// DecodeConfig controls how the binary log is turned into a table
type DecodeConfig struct {
	Event     string `mapstructure:"event" yaml:"event"`           // Event type to extract (empty: first with data)
	StrictCRC bool   `mapstructure:"strict_crc" yaml:"strict_crc"` // Abort on CRC mismatch
}

// OutputConfig contains output file settings
type OutputConfig struct {
	JSON string `mapstructure:"json" yaml:"json"` // JSON output path (empty: <input>.json)
	XLSX bool   `mapstructure:"xlsx" yaml:"xlsx"` // Also write <input>.xlsx
}

// GapsConfig contains gap detection parameters
type GapsConfig struct {
	Column   string `mapstructure:"column" yaml:"column"`       // Column holding the ticks
	StepMode string `mapstructure:"step_mode" yaml:"step_mode"` // "first" or "median"
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // Log level (debug, info, warn, error)
	Format string `mapstructure:"format" yaml:"format"` // Log format (text, json)
	File   string `mapstructure:"file" yaml:"file"`     // Log file path (empty: stderr)
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Decode: DecodeConfig{
			Event:     "",    // First event type with records
			StrictCRC: false, // Warn on CRC mismatch
		},
		Output: OutputConfig{
			JSON: "",    // Derived from the input path
			XLSX: false, // CSV and JSON only
		},
		Gaps: GapsConfig{
			Column:   "tick",  // Timestamp column of decoded logs
			StepMode: "first", // Step from the first two samples
		},
		Logging: LoggingConfig{
			Level:  "warn", // Keep stderr quiet unless something is off
			Format: "text", // Human readable
			File:   "",     // Log to stderr
		},
	}
}

// SetDefaults registers every default value with v so that environment
// variables and config files can override keys that no flag is bound to
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("decode.event", d.Decode.Event)
	v.SetDefault("decode.strict_crc", d.Decode.StrictCRC)
	v.SetDefault("output.json", d.Output.JSON)
	v.SetDefault("output.xlsx", d.Output.XLSX)
	v.SetDefault("gaps.column", d.Gaps.Column)
	v.SetDefault("gaps.step_mode", d.Gaps.StepMode)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// Init prepares v to read cfgFile (or ./usdlog.yaml when empty) and
// USDLOG_* environment variables. A missing default config file is not an
// error; an explicitly named one is.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("usdlog")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Load unmarshals v on top of the defaults and validates the result
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed by the types alone
func (c *Config) Validate() error {
	switch c.Gaps.StepMode {
	case "first", "median":
	default:
		return fmt.Errorf("invalid step mode: %s (must be 'first' or 'median')", c.Gaps.StepMode)
	}

	if c.Gaps.Column == "" {
		return fmt.Errorf("gap detection column not specified")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Logging.Format)
	}

	return nil
}
