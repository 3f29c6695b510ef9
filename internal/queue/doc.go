// Package queue persists conversion jobs in SQLite and enforces the
// pipeline's lifecycle invariants: monotonic state transitions along the
// fixed stage order, append-only stage telemetry, exactly one terminal
// state, and crash-consistent recovery of interrupted jobs at startup.
package queue
