// Package beep plays short feedback tones for recording and job events.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

const sampleRate = 44100

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

// SetEnabled toggles every tone at runtime.
func SetEnabled(on bool) { disabled.Store(!on) }

func Enabled() bool { return !disabled.Load() }

// tone is a decaying sine burst, optionally repeated after a gap.
type tone struct {
	freq    float64
	seconds float64
	volume  float64
	decay   float64
	repeat  int
	gap     float64
}

var (
	// recording started: high and short
	startTone = tone{freq: 1200, seconds: 0.06, volume: 0.5, decay: 60}
	// recording stopped or job done: lower, a little longer
	endTone = tone{freq: 900, seconds: 0.09, volume: 0.5, decay: 40}
	// failure: low double beep
	errorTone = tone{freq: 350, seconds: 0.08, volume: 0.6, decay: 30, repeat: 2, gap: 0.05}
)

// render returns mono PCM16 at rate.
func (t tone) render(rate int) []int16 {
	n := int(float64(rate) * t.seconds)
	burst := make([]int16, n)
	for i := range burst {
		x := float64(i) / float64(rate)
		env := math.Exp(-x * t.decay)
		burst[i] = int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * env)
	}
	out := burst
	for r := 1; r < t.repeat; r++ {
		out = append(out, make([]int16, int(float64(rate)*t.gap))...)
		out = append(out, burst...)
	}
	return out
}

var (
	renderOnce sync.Once
	rendered   map[tone][]int16
)

func play(t tone) {
	if disabled.Load() {
		return
	}
	renderOnce.Do(func() {
		rendered = map[tone][]int16{}
		for _, t := range []tone{startTone, endTone, errorTone} {
			rendered[t] = t.render(sampleRate)
		}
	})
	output(rendered[t])
}

func PlayStart() { play(startTone) }
func PlayEnd()   { play(endTone) }
func PlayError() { play(errorTone) }
