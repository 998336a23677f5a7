package tts

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

type EngineType string

const (
	EngineTypeMock          EngineType = "mock"
	EngineTypeESpeak        EngineType = "espeak"
	EngineTypeSay           EngineType = "say"  // macOS only
	EngineTypeSAPI          EngineType = "sapi" // Windows only
	EngineTypeGoogleClassic EngineType = "googleclassic"
	EngineTypeAuto          EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// Config selects and configures an engine.
type Config struct {
	Type        string
	CachePath   string
	CacheMaxAge time.Duration
	// Out receives the mock engine's console output. Nil silences it.
	Out io.Writer
}

// NewEngine creates the engine named by config.Type. Engines whose platform
// support is missing fail with ErrCapabilityUnavailable.
func NewEngine(config Config) (Engine, error) {
	// Handle auto-selection
	if config.Type == EngineTypeAuto.String() || config.Type == "" {
		config.Type = getBestEngineForPlatform().String()
	}

	switch config.Type {
	case EngineTypeMock.String():
		engine := NewMockEngine(DefaultMockVoices()...)
		engine.Out = config.Out
		engine.Instant = true
		return engine, nil

	case EngineTypeGoogleClassic.String():
		return NewGoogleEngine(NewAudioCache(config.CachePath, ".mp3", config.CacheMaxAge))

	case EngineTypeESpeak.String():
		return NewESpeakEngine()

	case EngineTypeSay.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("%w: say engine only supports macOS", ErrCapabilityUnavailable)
		}
		return NewSayEngine()

	case EngineTypeSAPI.String():
		return NewSAPIEngine()

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// getBestEngineForPlatform returns the recommended engine for the current platform
func getBestEngineForPlatform() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogleClassic
	}

	switch runtime.GOOS {
	case "darwin":
		return EngineTypeSay
	case "windows":
		return EngineTypeSAPI
	default:
		return EngineTypeESpeak // Cross-platform fallback
	}
}

// GetAvailableEngines returns engines available on the current platform
func GetAvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock}

	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, EngineTypeESpeak)
	}

	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogleClassic)
	}

	switch runtime.GOOS {
	case "darwin":
		engines = append(engines, EngineTypeSay)
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	}

	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	// Check for service account key file
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
