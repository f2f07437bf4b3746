package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tick", cfg.Gaps.Column)
	assert.Equal(t, "first", cfg.Gaps.StepMode)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usdlog.yaml")
	content := `
decode:
  event: fixedFrequency
  strict_crc: true
output:
  xlsx: true
gaps:
  step_mode: median
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "fixedFrequency", cfg.Decode.Event)
	assert.True(t, cfg.Decode.StrictCRC)
	assert.True(t, cfg.Output.XLSX)
	assert.Equal(t, "median", cfg.Gaps.StepMode)
	assert.Equal(t, "tick", cfg.Gaps.Column, "unset keys keep their default")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("USDLOG_GAPS_STEP_MODE", "median")
	t.Setenv("USDLOG_DECODE_EVENT", "controller")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "median", cfg.Gaps.StepMode)
	assert.Equal(t, "controller", cfg.Decode.Event)
}

func TestInitMissingExplicitFile(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad step mode", func(c *Config) { c.Gaps.StepMode = "mean" }},
		{"empty column", func(c *Config) { c.Gaps.Column = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
