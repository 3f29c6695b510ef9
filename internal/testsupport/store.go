package testsupport

import (
	"context"
	"testing"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// Settings returns a valid settings snapshot for tests.
func Settings() deck.Settings {
	return deck.Settings{
		Voice:        "en-US-JennyNeural",
		SpeakingRate: 1.0,
		Resolution:   deck.Resolution1080p,
		FPS:          30,
		Quality:      deck.QualityStandard,
	}
}

// MustCreateJob inserts a queued job for tests.
func MustCreateJob(t testing.TB, store *queue.Store, sourceName string) *queue.Job {
	t.Helper()

	job, err := store.Create(context.Background(), sourceName, Settings(), "/tmp/"+sourceName)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}
