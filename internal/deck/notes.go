package deck

import "strings"

// SlideNote is the narration script for one slide, produced once by the
// rendering collaborator and consumed read-only afterwards.
type SlideNote struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// NarrationRequired reports whether the slide has spoken content.
func (n SlideNote) NarrationRequired() bool {
	return strings.TrimSpace(n.Text) != ""
}

// CountNarrated returns how many notes carry spoken content.
func CountNarrated(notes []SlideNote) int {
	count := 0
	for _, note := range notes {
		if note.NarrationRequired() {
			count++
		}
	}
	return count
}
