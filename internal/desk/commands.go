package desk

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studentdesk/internal/cli/scheme/colours"
	"studentdesk/internal/config"
	"studentdesk/internal/speech/tts"
	"studentdesk/internal/speech/voice"
)

// Annotations on commands that need less than a full App.
const (
	skipApp    = "skip-app"
	skipConfig = "skip-config"
)

type cli struct {
	opts []Option
	cfg  config.Config
	app  *App
}

// NewRootCommand builds the studentdesk command tree. The App is created
// before any command that needs it runs and closed when the command returns.
func NewRootCommand(opts ...Option) *cobra.Command {
	c := &cli{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "studentdesk",
		Short: "🎒 Voice guide and preferences for the student dashboard",
		Long: `
┌─────────────────────────────────────┐
│  🎒 Welcome to StudentDesk! 🔊      │
│  Your dashboard, read aloud         │
│  in English and हिन्दी              │
└─────────────────────────────────────┘

StudentDesk narrates the student dashboard and remembers how you like it
to sound: voice on or off, language, voice and speaking rate.
		`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE:              c.withApp(c.showWelcome),
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🗣️ List available voices",
		Long:  "Display the voices the speech engine offers, marking the preferred one",
		RunE:  c.withApp(c.listVoices),
	}

	speakCmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "🔊 Speak some text",
		Long:  "Speak text aloud. Hindi is picked automatically for Devanagari text unless --lang says otherwise",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.withApp(c.speak),
	}
	speakCmd.Flags().StringP("lang", "l", "", "Language mode: auto, en or hi")
	speakCmd.Flags().Float64P("rate", "r", 0, "Speaking rate, 1.0 is normal")
	speakCmd.Flags().Float64P("pitch", "p", 0, "Pitch, 1.0 is normal")
	speakCmd.Flags().StringP("voice", "v", "", "Voice to use. See the voices command for options")

	tourCmd := &cobra.Command{
		Use:   "tour",
		Short: "🧭 Take the guided dashboard tour",
		Long:  "Walk through every dashboard section with voice narration",
		RunE:  c.withApp(c.tour),
	}
	tourCmd.Flags().StringP("lang", "l", "", "Language mode: auto, en or hi")

	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "⚙️ Show and change preferences",
		RunE:  c.withApp(c.listPrefs),
	}
	prefsGetCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Show one preference",
		Args:  cobra.ExactArgs(1),
		RunE:  c.withApp(c.getPref),
	}
	prefsSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference",
		Args:  cobra.ExactArgs(2),
		RunE:  c.withApp(c.setPref),
	}
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)

	enginesCmd := &cobra.Command{
		Use:         "engines",
		Short:       "🔧 List speech engines available here",
		Annotations: map[string]string{skipApp: "true", skipConfig: "true"},
		Run:         c.listEngines,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "📝 Manage the configuration file",
	}
	configInitCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipApp: "true", skipConfig: "true"},
		RunE:        c.initConfig,
	}
	configCmd.AddCommand(configInitCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "💾 Manage cached speech audio",
		Long:  "Inspect and clean the audio cache used by cloud speech engines",
	}
	cacheStatusCmd := &cobra.Command{
		Use:         "status",
		Short:       "📊 Show cache status",
		Annotations: map[string]string{skipApp: "true"},
		RunE:        c.cacheStatus,
	}
	cachePruneCmd := &cobra.Command{
		Use:         "prune",
		Short:       "🧹 Remove expired audio",
		Annotations: map[string]string{skipApp: "true"},
		RunE:        c.cachePrune,
	}
	cacheClearCmd := &cobra.Command{
		Use:         "clear",
		Short:       "🗑️ Remove all cached audio",
		Annotations: map[string]string{skipApp: "true"},
		RunE:        c.cacheClear,
	}
	cacheCmd.AddCommand(cacheStatusCmd, cachePruneCmd, cacheClearCmd)

	rootCmd.AddCommand(voicesCmd, speakCmd, tourCmd, prefsCmd, enginesCmd, configCmd, cacheCmd)
	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] != "" || c.app != nil {
		return nil
	}

	o := buildOptions(c.opts)

	if o.cfg != nil {
		c.cfg = *o.cfg
	} else {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	if logger, ok := o.log.(*logrus.Logger); ok {
		level, err := logrus.ParseLevel(c.cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger.SetLevel(level)
	}

	if cmd.Annotations[skipApp] != "" {
		return nil
	}

	opts := append([]Option{WithOutput(cmd.OutOrStdout())}, c.opts...)
	app, err := New(c.cfg, opts...)
	if err != nil {
		return err
	}
	if err := app.Ready(cmd.Context()); err != nil {
		_ = app.Close()
		return err
	}
	c.app = app
	return nil
}

// withApp closes the App once fn returns, whether or not it failed.
func (c *cli) withApp(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if c.app == nil {
				return
			}
			if closeErr := c.app.Close(); err == nil {
				err = closeErr
			}
			c.app = nil
		}()
		return fn(cmd, args)
	}
}

func (c *cli) showWelcome(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "🌟 Welcome to StudentDesk! 🌟")
	fmt.Fprintln(out)
	colours.Info.Fprintln(out, "📚 Available commands:")
	fmt.Fprintln(out, "  • studentdesk voices      - Browse available voices")
	fmt.Fprintln(out, "  • studentdesk speak       - Hear any text read aloud")
	fmt.Fprintln(out, "  • studentdesk tour        - Take the dashboard tour")
	fmt.Fprintln(out, "  • studentdesk prefs       - Configure the voice guide")
	fmt.Fprintln(out, "  • studentdesk engines     - See which speech engines work here")
	fmt.Fprintln(out)

	if !c.app.TourSeen.Value() {
		colours.Prompt.Fprintln(out, "✨ New here? Start with: studentdesk tour ✨")
	}
	return nil
}

func (c *cli) listVoices(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	svc, err := c.app.Voice()
	if err != nil {
		colours.Warning.Fprintf(out, "🔇 No voices: %v\n", err)
		return nil
	}

	voices := svc.Voices()
	preferred, hasPreferred := svc.Preferred()

	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "🗣️ Available Voices 🗣️")
	fmt.Fprintln(out)

	for i, v := range voices {
		marker, name := "  ", colours.Title
		if hasPreferred && v.Name == preferred.Name {
			marker, name = "⭐", colours.Preferred
		}
		fmt.Fprintf(out, "%s %d. ", marker, i+1)
		name.Fprintf(out, "%s", v.Name)
		colours.Section.Fprintf(out, " (%s)", v.LanguageTag)
		if v.Gender != "" {
			fmt.Fprintf(out, " %s", strings.ToLower(v.Gender))
		}
		if v.Natural {
			colours.Success.Fprint(out, " natural")
		}
		fmt.Fprintln(out)
	}

	if len(voices) == 0 {
		colours.Warning.Fprintln(out, "🔍 The engine has not reported any voices yet.")
		return nil
	}
	colours.Success.Fprintf(out, "✨ Found %d voices ✨\n", len(voices))
	return nil
}

func (c *cli) speak(cmd *cobra.Command, args []string) error {
	lang, _ := cmd.Flags().GetString("lang")
	rate, _ := cmd.Flags().GetFloat64("rate")
	pitch, _ := cmd.Flags().GetFloat64("pitch")
	name, _ := cmd.Flags().GetString("voice")

	if lang != "" {
		if err := validate.Var(lang, "oneof=auto en hi"); err != nil {
			return fmt.Errorf("invalid --lang %q: must be auto, en or hi", lang)
		}
	}

	err := c.app.SpeakAndWait(cmd.Context(), strings.Join(args, " "), SpeakParams{
		Language: voice.LanguageMode(lang),
		Rate:     rate,
		Pitch:    pitch,
		Voice:    name,
	})
	switch {
	case errors.Is(err, ErrVoiceDisabled):
		colours.Warning.Fprintln(cmd.OutOrStdout(), "🔇 Voice guide is off. Turn it on with: studentdesk prefs set voice_enabled true")
		return nil
	case errors.Is(err, tts.ErrCapabilityUnavailable):
		colours.Warning.Fprintf(cmd.OutOrStdout(), "🔇 Speech is not available: %v\n", err)
		return nil
	case err != nil:
		return err
	}
	return nil
}

func (c *cli) tour(cmd *cobra.Command, _ []string) error {
	lang, _ := cmd.Flags().GetString("lang")
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "🧭 Dashboard Tour 🧭")
	fmt.Fprintln(out, "💡 Press Ctrl+C to stop anytime")
	fmt.Fprintln(out)

	if err := c.app.RunTour(cmd.Context(), voice.LanguageMode(lang)); err != nil {
		return err
	}

	fmt.Fprintln(out)
	colours.Success.Fprintln(out, "✅ Tour finished! 🌟")
	return nil
}

func (c *cli) listPrefs(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "⚙️ Preferences ⚙️")
	fmt.Fprintln(out)

	for _, key := range c.app.PrefKeys() {
		value, err := c.app.GetPref(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = colours.Muted.Sprint("(default)")
		}
		fmt.Fprintf(out, "  • %-15s %s\n", key, value)
	}
	return nil
}

func (c *cli) getPref(cmd *cobra.Command, args []string) error {
	value, err := c.app.GetPref(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func (c *cli) setPref(cmd *cobra.Command, args []string) error {
	if err := c.app.SetPref(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	colours.Success.Fprintf(cmd.OutOrStdout(), "✅ %s = %s\n", args[0], args[1])
	return nil
}

func (c *cli) listEngines(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()

	colours.Title.Fprintln(out, "🔧 Speech engines on this system")
	for _, e := range tts.GetAvailableEngines() {
		fmt.Fprintf(out, "  • %s\n", e)
	}
}

func (c *cli) initConfig(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.DataDir(), "studentdesk.toml")
	if len(args) == 1 {
		path = args[0]
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	colours.Success.Fprintf(cmd.OutOrStdout(), "📝 Wrote default configuration to %s\n", path)
	return nil
}

func (c *cli) audioCache() *tts.AudioCache {
	return tts.NewAudioCache(c.cfg.TTS.CachePath, ".mp3", c.cfg.TTS.CacheMaxAge)
}

func (c *cli) cacheStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	colours.Title.Fprintln(out, "📊 Audio Cache Status")

	info, err := c.audioCache().Info()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	if !info.Exists {
		colours.Warning.Fprintln(out, "❌ Cache does not exist")
		colours.Info.Fprintln(out, "💡 Audio is cached the first time a cloud voice speaks")
		return nil
	}

	colours.Success.Fprintln(out, "✅ Cache exists")
	colours.Info.Fprintf(out, "📁 Location: %s\n", info.Dir)
	colours.Info.Fprintf(out, "🎵 Files: %d\n", info.Files)
	colours.Info.Fprintf(out, "📏 Size: %d bytes\n", info.Size)
	if !info.LastModified.IsZero() {
		colours.Info.Fprintf(out, "🕐 Last modified: %s\n", info.LastModified.Format("2006-01-02 15:04:05"))
	}
	if info.MaxAge > 0 {
		colours.Info.Fprintf(out, "⏳ Max age: %.1f hours\n", info.MaxAge.Hours())
	}
	return nil
}

func (c *cli) cachePrune(cmd *cobra.Command, _ []string) error {
	removed, err := c.audioCache().Prune()
	if err != nil {
		return err
	}
	colours.Success.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d expired files\n", removed)
	return nil
}

func (c *cli) cacheClear(cmd *cobra.Command, _ []string) error {
	if err := c.audioCache().Clear(); err != nil {
		return err
	}
	colours.Success.Fprintln(cmd.OutOrStdout(), "🗑️ Audio cache cleared")
	return nil
}
