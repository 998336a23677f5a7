package desk

import (
	"context"
	"errors"
	"fmt"

	"studentdesk/internal/cli/scheme/colours"
	"studentdesk/internal/speech/voice"
)

// TourStep narrates one section of the student dashboard.
type TourStep struct {
	Section string
	English string
	Hindi   string
}

// Tour is the guided tour of the dashboard, in display order.
var Tour = []TourStep{
	{
		Section: "Focus Mode",
		English: "Welcome to your dashboard. Start Focus Mode when you want to study without distractions.",
		Hindi:   "आपके डैशबोर्ड में स्वागत है। बिना रुकावट पढ़ाई के लिए फोकस मोड शुरू करें।",
	},
	{
		Section: "Ask anything",
		English: "Stuck on a question? Ask anything and get a step by step answer.",
		Hindi:   "किसी सवाल पर अटके हैं? कुछ भी पूछिए और आसान जवाब पाइए।",
	},
	{
		Section: "Continue",
		English: "Continue picks up the last chapter you were reading.",
		Hindi:   "कंटिन्यू से आप वहीं से पढ़ाई शुरू करते हैं जहाँ छोड़ी थी।",
	},
	{
		Section: "Challenge",
		English: "Take today's challenge to test what you have learned.",
		Hindi:   "आज का चैलेंज लेकर अपनी तैयारी जाँचिए।",
	},
	{
		Section: "Marksheet",
		English: "Your marksheet and analytics show how your scores change over time.",
		Hindi:   "मार्कशीट और एनालिटिक्स में आपके अंकों की प्रगति दिखती है।",
	},
	{
		Section: "Rank List",
		English: "The rank list shows where you stand among your classmates.",
		Hindi:   "रैंक लिस्ट में देखिए कि आप अपनी कक्षा में कहाँ हैं।",
	},
	{
		Section: "Spin & Win",
		English: "Finish your goals to earn spins in Spin and Win.",
		Hindi:   "अपने लक्ष्य पूरे करके स्पिन एंड विन में इनाम जीतिए।",
	},
}

// Narration returns the text for the step in the given language mode. Auto
// follows the English text.
func (s TourStep) Narration(mode voice.LanguageMode) string {
	if mode == voice.LanguageHindi {
		return s.Hindi
	}
	return s.English
}

// RunTour prints and narrates every tour step, waiting for each to finish.
// With voice unavailable or turned off the text is still printed. The tour
// is marked as seen once every step has been shown.
func (a *App) RunTour(ctx context.Context, mode voice.LanguageMode) error {
	if mode == "" {
		mode = voice.LanguageMode(a.VoiceLanguage.Value())
	}

	speak := true
	for i, step := range Tour {
		if err := ctx.Err(); err != nil {
			return err
		}

		text := step.Narration(mode)
		colours.Section.Fprintf(a.out, "%d/%d %s\n", i+1, len(Tour), step.Section)
		fmt.Fprintf(a.out, "   %s\n", text)

		if !speak {
			continue
		}
		err := a.SpeakAndWait(ctx, text, SpeakParams{Language: mode})
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			a.log.WithError(err).Debug("Continuing tour without narration")
			speak = false
		}
	}

	a.TourSeen.Set(true)
	return nil
}
