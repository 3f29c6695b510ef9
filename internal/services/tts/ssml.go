package tts

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// BuildSSML wraps the narration text in the SSML envelope the synthesis API
// expects. The speaking rate maps to a prosody percentage relative to the
// voice's native pace (1.0 → +0%).
func BuildSSML(text, voice string, speakingRate float64) string {
	lang := voiceLocale(voice)
	rate := ratePercent(speakingRate)

	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(strings.TrimSpace(text)))

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang=%q>`+
			`<voice name=%q><prosody rate=%q>%s</prosody></voice></speak>`,
		lang, voice, rate, escaped.String(),
	)
}

// voiceLocale extracts the locale prefix of a neural voice name, e.g.
// "en-US-JennyNeural" → "en-US".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func ratePercent(rate float64) string {
	if rate <= 0 {
		rate = 1.0
	}
	percent := (rate - 1.0) * 100
	return fmt.Sprintf("%+.0f%%", percent)
}
