package narration

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/services"
	"slidecast/internal/services/tts"
)

// Result is one slide's synthesized clip plus how many attempts it took.
type Result struct {
	Index    int
	Clip     tts.Clip
	Attempts int
}

// Pool fans narration synthesis out over a deck's narrated slides with a
// bounded number of in-flight calls and per-slide retry for retryable
// failures.
type Pool struct {
	synth         tts.Synthesizer
	maxConcurrent int
	maxAttempts   int
	backoff       time.Duration
	logger        *slog.Logger
}

// New constructs a narration pool. maxConcurrent bounds in-flight synthesis
// calls; maxAttempts bounds tries per slide; backoff is the first retry delay
// and doubles per attempt.
func New(synth tts.Synthesizer, maxConcurrent, maxAttempts int, backoff time.Duration, logger *slog.Logger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		synth:         synth,
		maxConcurrent: maxConcurrent,
		maxAttempts:   maxAttempts,
		backoff:       backoff,
		logger:        logger,
	}
}

// Narrate synthesizes a clip for every note with narration text and returns
// the results in slide-index order. The first permanent failure cancels the
// remaining work and is returned; retryable failures are retried with
// exponential backoff up to the attempt bound before counting as permanent.
func (p *Pool) Narrate(ctx context.Context, notes []deck.SlideNote, settings deck.Settings, destDir string) ([]Result, error) {
	narrated := make([]deck.SlideNote, 0, len(notes))
	for _, note := range notes {
		if note.NarrationRequired() {
			narrated = append(narrated, note)
		}
	}
	if len(narrated) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		results  []Result
		firstErr error
	)
	sem := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup

	for _, note := range narrated {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(note deck.SlideNote) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := p.synthesizeSlide(ctx, note, settings, destDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			results = append(results, result)
		}(note)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results, nil
}

func (p *Pool) synthesizeSlide(ctx context.Context, note deck.SlideNote, settings deck.Settings, destDir string) (Result, error) {
	logger := logging.WithContext(ctx, p.logger).With(logging.Int(logging.FieldSlide, note.Index))
	req := tts.Request{
		Text:         note.Text,
		Voice:        settings.Voice,
		SpeakingRate: settings.SpeakingRate,
		DestPath:     filepath.Join(destDir, fmt.Sprintf("slide-%03d.mp3", note.Index)),
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		clip, err := p.synth.Synthesize(ctx, req)
		if err == nil {
			if attempt > 1 {
				logger.Info("narration recovered after retry", logging.Int("attempts", attempt))
			}
			return Result{Index: note.Index, Clip: clip, Attempts: attempt}, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == p.maxAttempts {
			break
		}
		delay := p.backoff << (attempt - 1)
		logger.Warn("narration attempt failed, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return Result{}, lastErr
}
