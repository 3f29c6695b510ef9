package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/narration"
	"slidecast/internal/queue"
	"slidecast/internal/services/muxer"
	"slidecast/internal/services/render"
	"slidecast/internal/services/tts"
	"slidecast/internal/stage"
)

// Collaborators bundles the external services the pipeline drives.
type Collaborators struct {
	Renderer render.Renderer
	Synth    tts.Synthesizer
	Muxer    muxer.Muxer
	Prober   DurationProber
}

// DurationProber measures narration clip lengths for timeline computation.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Manager coordinates queue processing: it admits submissions, claims queued
// jobs into bounded worker slots, and drives each claimed job through the
// fixed stage sequence.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	runner   *stage.Runner
	handlers map[queue.State]stage.Handler

	pollInterval time.Duration
	slots        int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager wired to the given collaborators.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, collab Collaborators) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")

	pool := narration.New(
		collab.Synth,
		cfg.Workflow.MaxSynthesisCalls,
		cfg.Workflow.RetryAttempts,
		time.Duration(cfg.Workflow.RetryBackoffMS)*time.Millisecond,
		logger,
	)

	slots := cfg.Workflow.MaxActiveJobs
	if slots < 1 {
		slots = 1
	}

	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger,
		runner: stage.NewRunner(store, logger),
		handlers: map[queue.State]stage.Handler{
			queue.StateRendering: &renderingHandler{cfg: cfg, store: store, renderer: collab.Renderer},
			queue.StateNarrating: &narratingHandler{cfg: cfg, store: store, pool: pool},
			queue.StateSyncing:   &syncingHandler{cfg: cfg, store: store, renderer: collab.Renderer, prober: collab.Prober},
			queue.StateMuxing:    &muxingHandler{cfg: cfg, store: store, muxer: collab.Muxer, prober: collab.Prober},
		},
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		slots:        slots,
	}
}

// Start launches the worker slots.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.slots)
	for i := 0; i < m.slots; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight work to
// unwind. Claimed jobs stay in their current state; startup recovery resolves
// them as interrupted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Health reports per-stage collaborator readiness.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	order := []queue.State{queue.StateRendering, queue.StateNarrating, queue.StateSyncing, queue.StateMuxing}
	out := make([]stage.Health, 0, len(order))
	for _, state := range order {
		handler, ok := m.handlers[state]
		if !ok {
			continue
		}
		out = append(out, handler.HealthCheck(ctx))
	}
	return out
}
