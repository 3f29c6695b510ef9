package queue

import (
	"fmt"
	"strings"
	"time"

	"slidecast/internal/deck"
)

// State represents the lifecycle of a conversion job.
type State string

const (
	StateQueued    State = "queued"
	StateRendering State = "rendering"
	StateNarrating State = "narrating"
	StateSyncing   State = "syncing"
	StateMuxing    State = "muxing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// stateOrder is the fixed pipeline sequence. Transitions are monotonic along
// it; a job never regresses and never skips a stage.
var stateOrder = []State{
	StateQueued,
	StateRendering,
	StateNarrating,
	StateSyncing,
	StateMuxing,
	StateCompleted,
}

var stateIndex = func() map[State]int {
	idx := make(map[State]int, len(stateOrder))
	for i, s := range stateOrder {
		idx[s] = i
	}
	return idx
}()

// AllStates returns the ordered pipeline states followed by the failed state.
func AllStates() []State {
	cp := make([]State, len(stateOrder), len(stateOrder)+1)
	copy(cp, stateOrder)
	return append(cp, StateFailed)
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == StateFailed {
		return normalized, true
	}
	if _, ok := stateIndex[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// Successor returns the state that follows s in the fixed pipeline order.
func Successor(s State) (State, bool) {
	idx, ok := stateIndex[s]
	if !ok || idx+1 >= len(stateOrder) {
		return "", false
	}
	return stateOrder[idx+1], true
}

// IsTerminal reports whether no further transitions can occur.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsActive reports whether the job occupies a worker slot: any non-terminal,
// non-queued state.
func (s State) IsActive() bool {
	return !s.IsTerminal() && s != StateQueued
}

// PercentComplete derives deterministic progress from state alone using
// fixed per-stage weights; collaborators report no sub-stage progress.
func (s State) PercentComplete() int {
	switch s {
	case StateQueued:
		return 0
	case StateRendering:
		return 10
	case StateNarrating:
		return 40
	case StateSyncing:
		return 70
	case StateMuxing:
		return 85
	case StateCompleted, StateFailed:
		return 100
	default:
		return 0
	}
}

// StageStatus values recorded in telemetry.
const (
	StageOK     = "ok"
	StageFailed = "failed"
)

// StageTelemetry is one append-only per-stage timing record.
type StageTelemetry struct {
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
}

// Artifact roles stored in the job's artifact map.
const (
	RoleSource        = "source"
	RoleRenderedVideo = "renderedVideo"
	RoleRetimedVideo  = "retimedVideo"
	RoleFinalVideo    = "finalVideo"
	RoleLog           = "log"
)

// NarrationClipRole returns the artifact role for one slide's narration clip.
func NarrationClipRole(slideIndex int) string {
	return fmt.Sprintf("narrationClip[%d]", slideIndex)
}

// Job is the durable record of one conversion.
type Job struct {
	ID           string
	SourceName   string
	State        State
	Settings     deck.Settings
	Notes        []deck.SlideNote
	Stages       []StageTelemetry
	Artifacts    map[string]string
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Artifact returns the stored path for a role, or empty.
func (j *Job) Artifact(role string) string {
	if j == nil || j.Artifacts == nil {
		return ""
	}
	return j.Artifacts[role]
}

// TotalStageDurationMS sums recorded stage durations.
func (j *Job) TotalStageDurationMS() int64 {
	var total int64
	for _, s := range j.Stages {
		total += s.DurationMS
	}
	return total
}
