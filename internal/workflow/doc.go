// Package workflow drives conversion jobs through the fixed pipeline:
// queued, rendering, narrating, syncing, muxing, completed, with failure
// reachable from any active stage. The manager owns admission, bounded
// worker slots, and stage dispatch.
package workflow
