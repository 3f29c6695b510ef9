// Package api is the HTTP facade: submission, status, logs, downloads, and
// the notes preview endpoint.
package api
