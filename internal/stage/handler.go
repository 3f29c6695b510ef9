package stage

import (
	"context"

	"slidecast/internal/queue"
)

// Stage names match the processing states they run under.
const (
	NameRendering = "rendering"
	NameNarrating = "narrating"
	NameSyncing   = "syncing"
	NameMuxing    = "muxing"
)

// Outcome carries per-stage diagnostics back to the runner for telemetry.
type Outcome struct {
	Detail   string
	Attempts int
}

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Execute(context.Context, *queue.Job) (Outcome, error)
	HealthCheck(context.Context) Health
}
