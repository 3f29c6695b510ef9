// Package stage defines the contract pipeline stages implement and the
// runner that executes one stage with deadline enforcement, telemetry
// capture, and failure classification.
package stage
