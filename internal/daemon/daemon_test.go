package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/daemon"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/muxer"
	"slidecast/internal/services/render"
	"slidecast/internal/services/tts"
	"slidecast/internal/testsupport"
	"slidecast/internal/timing"
	"slidecast/internal/workflow"
)

type idleRenderer struct{}

func (idleRenderer) Render(ctx context.Context, sourcePath, destDir string, settings deck.Settings) (render.Result, error) {
	<-ctx.Done()
	return render.Result{}, ctx.Err()
}

func (idleRenderer) Retime(ctx context.Context, videoPath, destDir string, timeline timing.Timeline) (string, error) {
	return "", ctx.Err()
}

type idleSynth struct{}

func (idleSynth) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	return tts.Clip{}, ctx.Err()
}

type idleMuxer struct{}

func (idleMuxer) Mux(ctx context.Context, videoPath string, segments []muxer.Segment, outPath string) error {
	return ctx.Err()
}

type zeroProber struct{}

func (zeroProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	return 0, nil
}

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()
	wf := workflow.NewManager(cfg, store, logging.NewNop(), workflow.Collaborators{
		Renderer: idleRenderer{},
		Synth:    idleSynth{},
		Muxer:    idleMuxer{},
		Prober:   zeroProber{},
	})
	d, err := daemon.New(cfg, store, logging.NewNop(), wf, nil, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestStartResolvesInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stuck := testsupport.MustCreateJob(t, store, "stuck.pptx")
	if err := store.Transition(ctx, stuck.ID, queue.StateRendering); err != nil {
		t.Fatalf("transition: %v", err)
	}

	d := newDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	resolved, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resolved.State != queue.StateFailed {
		t.Fatalf("state = %s, want failed", resolved.State)
	}
	if resolved.ErrorKind != string(services.KindInterrupted) {
		t.Fatalf("error kind = %s, want interrupted", resolved.ErrorKind)
	}
}

func TestSecondInstanceCannotStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := newDaemon(t, cfg, store)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestStopReleasesLockForRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	d := newDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got, want := d.LockPath(), filepath.Join(cfg.Paths.DataDir, "slidecastd.lock"); got != want {
		t.Fatalf("lock path = %s, want %s", got, want)
	}
	d.Stop()

	restarted := newDaemon(t, cfg, store)
	if err := restarted.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	restarted.Stop()
}
