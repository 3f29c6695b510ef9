package timing_test

import (
	"testing"
	"time"

	"slidecast/internal/deck"
	"slidecast/internal/timing"
)

var policy = timing.Policy{SilentSlide: 2 * time.Second}

func TestComputeSilentMiddleSlide(t *testing.T) {
	notes := []deck.SlideNote{
		{Index: 1, Text: "Intro"},
		{Index: 2, Text: ""},
		{Index: 3, Text: "Outro"},
	}
	clips := map[int]time.Duration{
		1: 3200 * time.Millisecond,
		3: 4100 * time.Millisecond,
	}

	tl, err := timing.Compute(notes, clips, policy)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(tl.Slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(tl.Slots))
	}
	if tl.Slots[1].HasAudio {
		t.Fatal("silent slide marked narrated")
	}
	if tl.Slots[1].Duration != 2*time.Second {
		t.Fatalf("silent slide duration = %v, want 2s", tl.Slots[1].Duration)
	}
	want := 3200*time.Millisecond + 2*time.Second + 4100*time.Millisecond
	if tl.Total != want {
		t.Fatalf("total = %v, want %v (clip1 + default + clip3)", tl.Total, want)
	}
}

func TestComputeTotalEqualsSumExactly(t *testing.T) {
	notes := []deck.SlideNote{
		{Index: 1, Text: "a"},
		{Index: 2, Text: "b"},
		{Index: 3, Text: "c"},
	}
	// Sub-millisecond clip lengths force quantization.
	clips := map[int]time.Duration{
		1: 1000*time.Millisecond + 400*time.Microsecond,
		2: 1000*time.Millisecond + 400*time.Microsecond,
		3: 1000*time.Millisecond + 400*time.Microsecond,
	}

	tl, err := timing.Compute(notes, clips, policy)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var sum time.Duration
	for _, d := range tl.Durations() {
		sum += d
	}
	if sum != tl.Total {
		t.Fatalf("sum of slots %v != total %v", sum, tl.Total)
	}
	rawTotal := (3001200 * time.Microsecond).Truncate(time.Millisecond)
	if tl.Total != rawTotal {
		t.Fatalf("total %v drifted from raw sum %v", tl.Total, rawTotal)
	}
	// The remainder lands on the final slide only.
	if tl.Slots[0].Duration != time.Second || tl.Slots[1].Duration != time.Second {
		t.Fatalf("early slides should be truncated to 1s: %v", tl.Durations())
	}
	if tl.Slots[2].Duration != time.Second+time.Millisecond {
		t.Fatalf("final slide should absorb remainder: %v", tl.Slots[2].Duration)
	}
}

func TestComputeOffsetsAreCumulative(t *testing.T) {
	notes := []deck.SlideNote{{Index: 1, Text: "a"}, {Index: 2, Text: ""}, {Index: 3, Text: "c"}}
	clips := map[int]time.Duration{1: time.Second, 3: time.Second}

	tl, err := timing.Compute(notes, clips, policy)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if tl.Slots[0].Offset != 0 {
		t.Fatalf("first offset %v", tl.Slots[0].Offset)
	}
	if tl.Slots[1].Offset != time.Second {
		t.Fatalf("second offset %v", tl.Slots[1].Offset)
	}
	if tl.Slots[2].Offset != 3*time.Second {
		t.Fatalf("third offset %v", tl.Slots[2].Offset)
	}
}

func TestComputeAppliesPadding(t *testing.T) {
	padded := timing.Policy{SilentSlide: 2 * time.Second, Head: 250 * time.Millisecond, Tail: 750 * time.Millisecond}
	notes := []deck.SlideNote{{Index: 1, Text: "a"}}
	clips := map[int]time.Duration{1: time.Second}

	tl, err := timing.Compute(notes, clips, padded)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if tl.Total != 2*time.Second {
		t.Fatalf("total = %v, want clip + head + tail = 2s", tl.Total)
	}
}

func TestComputeMissingClipFails(t *testing.T) {
	notes := []deck.SlideNote{{Index: 1, Text: "a"}}
	if _, err := timing.Compute(notes, nil, policy); err == nil {
		t.Fatal("expected error for missing clip duration")
	}
}

func TestComputeEmptyDeckFails(t *testing.T) {
	if _, err := timing.Compute(nil, nil, policy); err == nil {
		t.Fatal("expected error for empty deck")
	}
}
