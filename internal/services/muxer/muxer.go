package muxer

import (
	"context"
	"time"
)

// Segment places one narration clip on the final audio track. Silent slides
// contribute no segment; their span stays empty.
type Segment struct {
	Path   string
	Offset time.Duration
}

// Muxer defines the behaviour required by the muxing handler.
type Muxer interface {
	Mux(ctx context.Context, videoPath string, segments []Segment, outPath string) error
}
