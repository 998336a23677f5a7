package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const envPrefix = "STUDENTDESK"

// Config is the root configuration for studentdesk.
type Config struct {
	TTS     TTSConfig     `mapstructure:"tts" toml:"tts"`
	Storage StorageConfig `mapstructure:"storage" toml:"storage"`
	Log     LogConfig     `mapstructure:"log" toml:"log"`
}

// TTSConfig selects the speech engine and the default utterance parameters.
type TTSConfig struct {
	Type      string  `mapstructure:"type" toml:"type" validate:"oneof=auto mock espeak say sapi googleclassic"`
	Voice     string  `mapstructure:"voice" toml:"voice"`
	Language  string  `mapstructure:"language" toml:"language" validate:"oneof=auto en hi"`
	Rate      float64 `mapstructure:"rate" toml:"rate" validate:"gt=0,lte=3"`
	Pitch     float64 `mapstructure:"pitch" toml:"pitch" validate:"gt=0,lte=2"`
	CachePath string  `mapstructure:"cache_path" toml:"cache_path"`

	// CacheMaxAge bounds how long synthesized audio is reused; 0 keeps it forever.
	CacheMaxAge time.Duration `mapstructure:"cache_max_age" toml:"cache_max_age"`
}

// StorageConfig selects the preference backend.
type StorageConfig struct {
	Type string     `mapstructure:"type" toml:"type" validate:"oneof=memory file sqlite nats"`
	Path string     `mapstructure:"path" toml:"path" validate:"required_if=Type file,required_if=Type sqlite"`
	NATS NATSConfig `mapstructure:"nats" toml:"nats"`
}

// NATSConfig holds the JetStream key/value settings.
type NATSConfig struct {
	URL    string `mapstructure:"url" toml:"url"`
	Bucket string `mapstructure:"bucket" toml:"bucket" validate:"omitempty,excludesall=.*>"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level" validate:"oneof=trace debug info warn error"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tts.type", "auto") // Auto-select best engine
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.language", "auto")
	v.SetDefault("tts.rate", 1.0)
	v.SetDefault("tts.pitch", 1.0)
	v.SetDefault("tts.cache_path", filepath.Join(DataDir(), "audio"))
	v.SetDefault("tts.cache_max_age", 30*24*time.Hour)

	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.path", filepath.Join(DataDir(), "prefs.json"))
	v.SetDefault("storage.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("storage.nats.bucket", "studentdesk_prefs")

	v.SetDefault("log.level", "info")
}

// Load reads configuration from the config file (if any) and the environment.
// Env overrides use the STUDENTDESK_ prefix, e.g. STUDENTDESK_TTS_TYPE.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	v.SetConfigType("toml")
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("studentdesk")
		v.AddConfigPath(DataDir())
		v.AddConfigPath(filepath.Join("$HOME", ".studentdesk"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DataDir returns the per-user directory studentdesk keeps its files in.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "studentdesk")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".studentdesk")
	}

	return ".studentdesk"
}
