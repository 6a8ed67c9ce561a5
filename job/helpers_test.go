package job

import (
	"testing"
	"time"

	"wisp/transcriber"
)

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

var testModel = transcriber.Model{Variant: transcriber.WhisperCpp, Size: transcriber.Base}

// samples returns n seconds of silence at 10 samples per second, matching
// testChunked.
func samples(seconds float64) []float32 {
	return make([]float32, int(seconds*10))
}

func testChunked() *Chunked {
	return NewChunked(time.Second, 10)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func drain(h *Handle) []Event {
	var evs []Event
	for {
		ev, ok := h.Next()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

type recordingView struct {
	updates  []Snapshot
	outcomes []Outcome
	cancelAt int // 1-based Update call that returns false; 0 never cancels
}

func (v *recordingView) Update(s Snapshot) bool {
	v.updates = append(v.updates, s)
	return len(v.updates) != v.cancelAt
}

func (v *recordingView) Finish(o Outcome) {
	v.outcomes = append(v.outcomes, o)
}
