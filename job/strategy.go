package job

import (
	"context"
	"fmt"
	"time"

	"wisp/transcriber"
)

// Strategy is a job body. Run executes on the worker goroutine. It reports
// through emit and polls cancelled at safe points; returning nil after a
// cancellation is expected.
type Strategy interface {
	Name() string
	Run(ctx context.Context, eng transcriber.Engine, in Input, emit func(Event), cancelled func() bool) error
}

// WholeFile decodes the input in one call and emits a single Final event.
// The decode itself cannot be interrupted.
type WholeFile struct{}

func NewWholeFile() WholeFile { return WholeFile{} }

func (WholeFile) Name() string { return "wholefile" }

func (WholeFile) Run(ctx context.Context, eng transcriber.Engine, in Input, emit func(Event), cancelled func() bool) error {
	if cancelled() {
		return nil
	}
	samples, err := in.Load()
	if err != nil {
		return err
	}
	res, err := eng.Transcribe(ctx, samples, transcriber.Options{})
	if err != nil {
		return &transcriber.DecodeError{Window: -1, Err: err}
	}
	if cancelled() {
		return nil
	}
	emit(Event{Kind: Final, Text: res.Text, Progress: 100})
	return nil
}

const DefaultWindow = 30 * time.Second

// Chunked decodes fixed windows in order and emits one Partial per window.
// The language detected on the first window is reused for the rest.
type Chunked struct {
	window     time.Duration
	sampleRate int
}

func NewChunked(window time.Duration, sampleRate int) *Chunked {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Chunked{window: window, sampleRate: sampleRate}
}

func (c *Chunked) Name() string { return fmt.Sprintf("chunked(%s)", c.window) }

func (c *Chunked) windowSamples() int {
	n := int(c.window.Seconds() * float64(c.sampleRate))
	return max(n, 1)
}

// Windows reports how many windows n samples split into.
func (c *Chunked) Windows(n int) int {
	size := c.windowSamples()
	return (n + size - 1) / size
}

func (c *Chunked) Run(ctx context.Context, eng transcriber.Engine, in Input, emit func(Event), cancelled func() bool) error {
	if cancelled() {
		return nil
	}
	samples, err := in.Load()
	if err != nil {
		return err
	}

	size := c.windowSamples()
	total := c.Windows(len(samples))
	var opts transcriber.Options
	for i := 0; i < total; i++ {
		if cancelled() {
			return nil
		}
		end := min((i+1)*size, len(samples))
		res, err := eng.Transcribe(ctx, samples[i*size:end], opts)
		if err != nil {
			return &transcriber.DecodeError{Window: i, Err: err}
		}
		if cancelled() {
			return nil
		}
		if i == 0 {
			opts.Language = res.Language
		}
		emit(Event{
			Kind:     Partial,
			Text:     res.Text + " ",
			Progress: float64(i+1) / float64(total) * 100,
		})
	}
	return nil
}
