package timing

import (
	"fmt"
	"time"

	"slidecast/internal/deck"
	"slidecast/internal/services"
)

// Slot is the computed display window for one slide.
type Slot struct {
	Index      int           `json:"index"`
	Duration   time.Duration `json:"duration"`
	Offset     time.Duration `json:"offset"`
	HasAudio   bool          `json:"has_audio"`
	ClipLength time.Duration `json:"clip_length,omitempty"`
}

// Timeline is the per-slide schedule fed back to the renderer and the muxer.
// Total always equals the sum of slot durations exactly; rounding remainder
// is folded into the final slide so no drift accumulates.
type Timeline struct {
	Slots []Slot        `json:"slots"`
	Total time.Duration `json:"total"`
}

// Policy carries the configured timing constants.
type Policy struct {
	SilentSlide time.Duration
	Head        time.Duration
	Tail        time.Duration
}

// Compute builds the timeline for the given notes. clips maps slide index to
// narration clip duration; silent slides take the policy default. Durations
// are quantized to whole milliseconds before summing, with the remainder of
// the quantization assigned to the last slide.
func Compute(notes []deck.SlideNote, clips map[int]time.Duration, policy Policy) (Timeline, error) {
	if len(notes) == 0 {
		return Timeline{}, services.Wrap(services.ErrInternal, "syncing", "compute timeline", "no slides", nil)
	}
	if policy.SilentSlide <= 0 {
		return Timeline{}, services.Wrap(services.ErrInternal, "syncing", "compute timeline", "silent slide duration must be positive", nil)
	}

	slots := make([]Slot, 0, len(notes))
	var rawTotal time.Duration
	var quantTotal time.Duration

	for _, note := range notes {
		slot := Slot{Index: note.Index}
		raw := policy.SilentSlide
		if note.NarrationRequired() {
			clip, ok := clips[note.Index]
			if !ok {
				return Timeline{}, services.Wrap(services.ErrInternal, "syncing", "compute timeline",
					fmt.Sprintf("missing narration duration for slide %d", note.Index), nil)
			}
			slot.HasAudio = true
			slot.ClipLength = clip
			raw = clip + policy.Head + policy.Tail
		}
		rawTotal += raw

		quantized := raw.Truncate(time.Millisecond)
		if quantized <= 0 {
			quantized = time.Millisecond
		}
		slot.Offset = quantTotal
		slot.Duration = quantized
		quantTotal += quantized
		slots = append(slots, slot)
	}

	// Fold the quantization remainder into the final slide so the schedule
	// total matches the raw sum at millisecond precision.
	remainder := rawTotal.Truncate(time.Millisecond) - quantTotal
	if remainder > 0 {
		slots[len(slots)-1].Duration += remainder
		quantTotal += remainder
	}

	return Timeline{Slots: slots, Total: quantTotal}, nil
}

// Durations returns the slot durations in slide order.
func (t Timeline) Durations() []time.Duration {
	out := make([]time.Duration, len(t.Slots))
	for i, slot := range t.Slots {
		out[i] = slot.Duration
	}
	return out
}
