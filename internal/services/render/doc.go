// Package render wraps the external presentation renderer executable that
// turns a deck into a base video and extracts its speaker notes.
package render
