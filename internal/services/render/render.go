package render

import (
	"context"

	"slidecast/internal/deck"
	"slidecast/internal/timing"
)

// Result carries the outputs of a render pass.
type Result struct {
	VideoPath string
	Notes     []deck.SlideNote
}

// Renderer defines the behaviour required by the rendering and syncing
// handlers. Render produces the base video plus the deck's speaker notes;
// Retime regenerates the video with per-slide display durations.
type Renderer interface {
	Render(ctx context.Context, sourcePath, destDir string, settings deck.Settings) (Result, error)
	Retime(ctx context.Context, videoPath, destDir string, timeline timing.Timeline) (string, error)
}

// NotesExtractor is the optional notes-only pass used for previews.
type NotesExtractor interface {
	ExtractNotes(ctx context.Context, sourcePath, destDir string) ([]deck.SlideNote, error)
}
