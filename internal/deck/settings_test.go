package deck_test

import (
	"errors"
	"testing"

	"slidecast/internal/deck"
	"slidecast/internal/services"
)

func validSettings() deck.Settings {
	return deck.Settings{
		Voice:        "en-US-JennyNeural",
		SpeakingRate: 1.0,
		Resolution:   deck.Resolution1080p,
		FPS:          30,
		Quality:      deck.QualityStandard,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*deck.Settings)
	}{
		{"empty voice", func(s *deck.Settings) { s.Voice = "" }},
		{"bad voice form", func(s *deck.Settings) { s.Voice = "Jenny" }},
		{"bad locale", func(s *deck.Settings) { s.Voice = "x!-Y!-JennyNeural" }},
		{"rate too low", func(s *deck.Settings) { s.SpeakingRate = 0.1 }},
		{"rate too high", func(s *deck.Settings) { s.SpeakingRate = 3.0 }},
		{"bad resolution", func(s *deck.Settings) { s.Resolution = "480p" }},
		{"zero fps", func(s *deck.Settings) { s.FPS = 0 }},
		{"excess fps", func(s *deck.Settings) { s.FPS = 120 }},
		{"bad quality", func(s *deck.Settings) { s.Quality = "ultra" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNarrationRequired(t *testing.T) {
	notes := []deck.SlideNote{
		{Index: 1, Text: "Welcome."},
		{Index: 2, Text: "   "},
		{Index: 3, Text: "Thanks."},
	}
	if notes[1].NarrationRequired() {
		t.Fatal("whitespace-only note should not require narration")
	}
	if got := deck.CountNarrated(notes); got != 2 {
		t.Fatalf("CountNarrated = %d, want 2", got)
	}
}
