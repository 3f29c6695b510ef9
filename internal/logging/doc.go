// Package logging builds the slog loggers used across slidecast and defines
// the standardized structured field keys shared by the daemon, the workflow
// manager, and the HTTP facade.
package logging
