package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "auto", cfg.TTS.Type)
	assert.Equal(t, "auto", cfg.TTS.Language)
	assert.InEpsilon(t, 1.0, cfg.TTS.Rate, 0.001)
	assert.InEpsilon(t, 1.0, cfg.TTS.Pitch, 0.001)
	assert.Equal(t, "file", cfg.Storage.Type)
	assert.Equal(t, "studentdesk_prefs", cfg.Storage.NATS.Bucket)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studentdesk.toml")

	tomlData := `
[tts]
type = "mock"
language = "hi"
rate = 1.25
pitch = 0.9

[storage]
type = "sqlite"
path = "prefs.db"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(tomlData), 0644))
	t.Setenv("STUDENTDESK_CONFIG", path)

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.TTS.Type)
	assert.Equal(t, "hi", cfg.TTS.Language)
	assert.InEpsilon(t, 1.25, cfg.TTS.Rate, 0.001)
	assert.InEpsilon(t, 0.9, cfg.TTS.Pitch, 0.001)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "prefs.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STUDENTDESK_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := config.Load(viper.New())
	require.Error(t, err, "an explicit config path must exist")

	t.Setenv("STUDENTDESK_CONFIG", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("STUDENTDESK_STORAGE_TYPE", "memory")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown engine":   func(c *config.Config) { c.TTS.Type = "festival" },
		"unknown language": func(c *config.Config) { c.TTS.Language = "fr" },
		"zero rate":        func(c *config.Config) { c.TTS.Rate = 0 },
		"unknown storage":  func(c *config.Config) { c.Storage.Type = "redis" },
		"file without path": func(c *config.Config) {
			c.Storage.Type = "file"
			c.Storage.Path = ""
		},
		"bucket with dot": func(c *config.Config) { c.Storage.NATS.Bucket = "a.b" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "studentdesk.toml")

	require.NoError(t, config.WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, toml.Unmarshal(data, &cfg))
	assert.Equal(t, config.Default(), cfg)

	assert.Error(t, config.WriteDefault(path), "existing file must not be overwritten")
}
