package desk

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"

	"studentdesk/internal/storage"
)

var validate = validator.New()

// pref adapts one typed cell to the string form used on the command line.
type pref struct {
	get  func() string
	set  func(raw string) (*storage.Write, error)
	rule string
}

func (a *App) prefs() map[string]pref {
	return map[string]pref{
		KeyVoiceEnabled: {
			get: func() string { return strconv.FormatBool(a.VoiceEnabled.Value()) },
			set: func(raw string) (*storage.Write, error) {
				v, err := strconv.ParseBool(raw)
				if err != nil {
					return nil, err
				}
				return a.VoiceEnabled.Set(v), nil
			},
		},
		KeyVoiceLanguage: {
			get:  a.VoiceLanguage.Value,
			rule: "oneof=auto en hi",
			set: func(raw string) (*storage.Write, error) {
				return a.VoiceLanguage.Set(raw), nil
			},
		},
		KeyVoiceName: {
			get: a.VoiceName.Value,
			set: func(raw string) (*storage.Write, error) {
				return a.VoiceName.Set(raw), nil
			},
		},
		KeySpeechRate: {
			get: func() string { return strconv.FormatFloat(a.SpeechRate.Value(), 'g', -1, 64) },
			set: func(raw string) (*storage.Write, error) {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, err
				}
				if err := validate.Var(v, "gt=0,lte=3"); err != nil {
					return nil, err
				}
				return a.SpeechRate.Set(v), nil
			},
		},
		KeyTourSeen: {
			get: func() string { return strconv.FormatBool(a.TourSeen.Value()) },
			set: func(raw string) (*storage.Write, error) {
				v, err := strconv.ParseBool(raw)
				if err != nil {
					return nil, err
				}
				return a.TourSeen.Set(v), nil
			},
		},
	}
}

// PrefKeys lists the preference keys in sorted order.
func (a *App) PrefKeys() []string {
	keys := make([]string, 0, 5)
	for k := range a.prefs() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetPref returns the current value of key as a string.
func (a *App) GetPref(key string) (string, error) {
	p, ok := a.prefs()[key]
	if !ok {
		return "", fmt.Errorf("unknown preference %q", key)
	}
	return p.get(), nil
}

// SetPref parses raw for key, updates the preference and waits for it to
// be persisted.
func (a *App) SetPref(ctx context.Context, key, raw string) error {
	p, ok := a.prefs()[key]
	if !ok {
		return fmt.Errorf("unknown preference %q", key)
	}

	if p.rule != "" {
		if err := validate.Var(raw, p.rule); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
		}
	}

	w, err := p.set(raw)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
	if w == nil {
		return nil
	}
	return w.Wait(ctx)
}
