// Package daemon composes the long-running services: workflow manager, HTTP
// API, and artifact janitor, guarded by a single-instance lock.
package daemon
