package tts

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// SAPIEngine drives the Windows Speech API through PowerShell.
type SAPIEngine struct {
	path string

	mutex     sync.Mutex
	proc      speechProcess
	voices    []Voice
	listeners voiceListeners
}

const sapiPrelude = `Add-Type -AssemblyName System.Speech; ` +
	`$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; `

// The text is read from stdin so it never has to be quoted into the script.
const sapiSpeakScript = sapiPrelude +
	`$synth.Rate = [int]$args[0]; ` +
	`if ($args[1]) { $synth.SelectVoice($args[1]) } ` +
	`elseif ($args[2]) { try { $synth.SelectVoiceByHints('NotSet', 'NotSet', 0, [Globalization.CultureInfo]$args[2]) } catch {} }; ` +
	`$synth.Speak([Console]::In.ReadToEnd())`

const sapiVoicesScript = sapiPrelude +
	`$synth.GetInstalledVoices() | Where-Object { $_.Enabled } | ` +
	`ForEach-Object { $i = $_.VoiceInfo; "$($i.Name)|$($i.Culture.Name)|$($i.Gender)" }`

// NewSAPIEngine creates a new Windows speech engine
func NewSAPIEngine() (*SAPIEngine, error) {
	if runtime.GOOS != "windows" {
		return nil, fmt.Errorf("%w: SAPI engine only supports Windows", ErrCapabilityUnavailable)
	}

	path, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("%w: powershell not found: %v", ErrCapabilityUnavailable, err)
	}
	return &SAPIEngine{path: path, proc: speechProcess{name: "SAPI"}}, nil
}

func (s *SAPIEngine) Speak(u Utterance) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	voice := ""
	if u.Voice != nil {
		voice = u.Voice.engineID()
	}

	cmd := exec.Command(s.path, "-NoProfile", "-NonInteractive", "-Command", sapiSpeakScript,
		fmt.Sprint(sapiRate(u.Rate)), voice, u.LanguageTag)
	cmd.Stdin = strings.NewReader(u.Text)
	return s.proc.start(cmd, u)
}

// sapiRate maps a 1.0-is-normal rate onto SAPI's -10..10 scale.
func sapiRate(rate float64) int {
	return int(clamp((rate-1)*10, -10, 10))
}

func (s *SAPIEngine) Cancel() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.proc.stop()
	return nil
}

func (s *SAPIEngine) IsSpeaking() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.proc.running()
}

func (s *SAPIEngine) Voices() ([]Voice, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.voices != nil {
		return append([]Voice(nil), s.voices...), nil
	}

	output, err := exec.Command(s.path, "-NoProfile", "-NonInteractive", "-Command", sapiVoicesScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list SAPI voices: %w", err)
	}

	s.voices = parseSAPIVoices(string(output))
	return append([]Voice(nil), s.voices...), nil
}

func (s *SAPIEngine) OnVoicesChanged(fn func()) func() {
	return s.listeners.add(fn)
}

// parseSAPIVoices reads "Name|Culture|Gender" lines.
func parseSAPIVoices(output string) []Voice {
	voices := make([]Voice, 0)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) != 3 || fields[0] == "" {
			continue
		}

		gender := ""
		switch fields[2] {
		case "Female":
			gender = "F"
		case "Male":
			gender = "M"
		}

		voices = append(voices, Voice{
			Name:        fields[0],
			LanguageTag: NormalizeTag(fields[1]),
			Gender:      gender,
		})
	}

	return voices
}
