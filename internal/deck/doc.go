// Package deck holds the immutable value objects describing a conversion
// job: the settings snapshot captured at submission and the per-slide
// narration notes extracted from the presentation.
package deck
