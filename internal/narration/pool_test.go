package narration_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slidecast/internal/deck"
	"slidecast/internal/narration"
	"slidecast/internal/services"
	"slidecast/internal/services/tts"
	"slidecast/internal/testsupport"
)

// fakeSynth scripts per-slide behaviour keyed by narration text.
type fakeSynth struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	script   func(text string, attempt int) error
	delay    time.Duration
}

func newFakeSynth(script func(text string, attempt int) error) *fakeSynth {
	return &fakeSynth{calls: make(map[string]int), script: script}
}

func (f *fakeSynth) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return tts.Clip{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls[req.Text]++
	attempt := f.calls[req.Text]
	f.mu.Unlock()

	if f.script != nil {
		if err := f.script(req.Text, attempt); err != nil {
			return tts.Clip{}, err
		}
	}
	return tts.Clip{Path: req.DestPath, Duration: time.Second}, nil
}

func notes(texts ...string) []deck.SlideNote {
	out := make([]deck.SlideNote, 0, len(texts))
	for i, text := range texts {
		out = append(out, deck.SlideNote{Index: i + 1, Text: text})
	}
	return out
}

func TestNarrateSkipsSilentSlidesAndOrdersResults(t *testing.T) {
	synth := newFakeSynth(nil)
	pool := narration.New(synth, 4, 3, time.Millisecond, nil)

	results, err := pool.Narrate(context.Background(), notes("intro", "", "outro"), testsupport.Settings(), t.TempDir())
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Index != 1 || results[1].Index != 3 {
		t.Fatalf("results out of order: %+v", results)
	}
	for _, r := range results {
		if r.Clip.Path == "" || r.Clip.Duration == 0 {
			t.Fatalf("incomplete clip: %+v", r)
		}
	}
}

func TestNarrateAllSilentDoesNothing(t *testing.T) {
	synth := newFakeSynth(nil)
	pool := narration.New(synth, 4, 3, time.Millisecond, nil)
	results, err := pool.Narrate(context.Background(), notes("", "", ""), testsupport.Settings(), t.TempDir())
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %+v", results)
	}
	if len(synth.calls) != 0 {
		t.Fatalf("synthesizer called for silent deck: %v", synth.calls)
	}
}

func TestNarrateRetriesRateLimitedThenSucceeds(t *testing.T) {
	synth := newFakeSynth(func(text string, attempt int) error {
		if text == "flaky" && attempt <= 2 {
			return services.Wrap(services.ErrRateLimited, "narrating", "synthesize", "http 429", nil)
		}
		return nil
	})
	pool := narration.New(synth, 2, 3, time.Millisecond, nil)

	results, err := pool.Narrate(context.Background(), notes("steady", "flaky"), testsupport.Settings(), t.TempDir())
	if err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if results[1].Attempts != 3 {
		t.Fatalf("flaky slide attempts = %d, want 3", results[1].Attempts)
	}
	if results[0].Attempts != 1 {
		t.Fatalf("steady slide attempts = %d, want 1", results[0].Attempts)
	}
}

func TestNarrateExhaustedRetriesReturnLastError(t *testing.T) {
	synth := newFakeSynth(func(text string, attempt int) error {
		return services.Wrap(services.ErrTransient, "narrating", "synthesize", "connection reset", nil)
	})
	pool := narration.New(synth, 1, 2, time.Millisecond, nil)

	_, err := pool.Narrate(context.Background(), notes("doomed"), testsupport.Settings(), t.TempDir())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error %v, want transient", err)
	}
	if synth.calls["doomed"] != 2 {
		t.Fatalf("attempts = %d, want 2", synth.calls["doomed"])
	}
}

func TestNarratePermanentFailureAbortsWithoutRetry(t *testing.T) {
	synth := newFakeSynth(func(text string, attempt int) error {
		if text == "bad" {
			return services.Wrap(services.ErrAuth, "narrating", "synthesize", "http 401", nil)
		}
		return nil
	})
	// Concurrency 1 keeps execution sequential so slides after the failure
	// must not be attempted at all.
	pool := narration.New(synth, 1, 3, time.Millisecond, nil)

	_, err := pool.Narrate(context.Background(), notes("bad", "after-1", "after-2"), testsupport.Settings(), t.TempDir())
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("error %v, want auth", err)
	}
	if synth.calls["bad"] != 1 {
		t.Fatalf("auth failure retried: %d attempts", synth.calls["bad"])
	}
	if synth.calls["after-2"] != 0 {
		t.Fatal("slides after permanent failure should be cancelled")
	}
}

func TestNarrateBoundsConcurrentCalls(t *testing.T) {
	synth := newFakeSynth(nil)
	synth.delay = 20 * time.Millisecond
	pool := narration.New(synth, 2, 1, time.Millisecond, nil)

	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("slide %d", i+1)
	}
	if _, err := pool.Narrate(context.Background(), notes(texts...), testsupport.Settings(), t.TempDir()); err != nil {
		t.Fatalf("narrate: %v", err)
	}
	if peak := synth.peak.Load(); peak > 2 {
		t.Fatalf("peak in-flight calls = %d, bound is 2", peak)
	}
}
