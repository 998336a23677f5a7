// Cross-platform eSpeak implementation
package tts

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	path string

	mutex     sync.Mutex
	proc      speechProcess
	voices    []Voice
	listeners voiceListeners
}

// NewESpeakEngine creates a new eSpeak TTS engine
func NewESpeakEngine() (*ESpeakEngine, error) {
	// Check if eSpeak is available
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}

	engine := &ESpeakEngine{
		path: espeakPath,
		proc: speechProcess{name: "eSpeak"},
	}

	// Test the installation
	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("%w: eSpeak test failed: %v", ErrCapabilityUnavailable, err)
	}

	return engine, nil
}

func findESpeakExecutable() (string, error) {
	// Try different possible eSpeak executables
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Speak(u Utterance) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	// Build eSpeak command arguments
	args := []string{"--stdin"}

	// Voice by language file, else let eSpeak pick from the language tag
	switch {
	case u.Voice != nil:
		args = append(args, "-v", u.Voice.engineID())
	case u.LanguageTag != "":
		args = append(args, "-v", strings.ToLower(u.LanguageTag))
	}

	// Speed in words per minute, default is 175
	speed := int(175 * clamp(u.Rate, 0.1, 3.0))
	args = append(args, "-s", strconv.Itoa(speed))

	// Pitch 0-99, default is 50
	pitch := int(clamp(50*u.Pitch, 0, 99))
	args = append(args, "-p", strconv.Itoa(pitch))

	cmd := exec.Command(e.path, args...)
	cmd.Stdin = strings.NewReader(u.Text)
	return e.proc.start(cmd, u)
}

func (e *ESpeakEngine) Cancel() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.proc.stop()
	return nil
}

func (e *ESpeakEngine) IsSpeaking() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.proc.running()
}

// Voices lists the installed voices. The list is read once; eSpeak voices
// only change when packages are installed.
func (e *ESpeakEngine) Voices() ([]Voice, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.voices != nil {
		return append([]Voice(nil), e.voices...), nil
	}

	output, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list eSpeak voices: %w", err)
	}

	e.voices = parseESpeakVoices(string(output))
	return append([]Voice(nil), e.voices...), nil
}

func (e *ESpeakEngine) OnVoicesChanged(fn func()) func() {
	return e.listeners.add(fn)
}

func parseESpeakVoices(output string) []Voice {
	lines := strings.Split(output, "\n")
	voices := make([]Voice, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Parse voice line: Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		gender := ""
		if _, g, ok := strings.Cut(fields[2], "/"); ok && g != "-" {
			gender = g
		}

		voices = append(voices, Voice{
			Name:        strings.ReplaceAll(fields[3], "_", " "),
			LanguageTag: NormalizeTag(fields[1]),
			ID:          fields[1],
			Gender:      gender,
		})
	}

	return voices
}
