package transcriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrFakeDecode = errors.New("fake decode failure")

// FakeEngine returns scripted text. Call indexes are 1-based; FailAt and
// PanicAt of 0 disable the failure.
type FakeEngine struct {
	Texts   []string // text per call, the last entry repeats
	Lang    string   // reported when the caller asks for auto-detection
	FailAt  int
	PanicAt int
	Err     error

	// Gate, when set, blocks every Transcribe until a value is received or
	// the context ends.
	Gate chan struct{}

	size Size

	mu     sync.Mutex
	calls  int
	opts   []Options
	closed bool
}

func NewFake(texts ...string) *FakeEngine {
	return &FakeEngine{Texts: texts, size: Base}
}

func (f *FakeEngine) Name() string { return "fake" }

func (f *FakeEngine) Model() Model {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Model{Variant: WhisperCpp, Size: f.size}
}

func (f *FakeEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls++
	n := f.calls
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if n == f.PanicAt {
		panic(fmt.Sprintf("fake engine panic on call %d", n))
	}
	if n == f.FailAt {
		if f.Err != nil {
			return Result{}, f.Err
		}
		return Result{}, ErrFakeDecode
	}

	var text string
	if len(f.Texts) > 0 {
		text = f.Texts[min(n, len(f.Texts))-1]
	}
	lang := opts.Language
	if lang == "" {
		lang = f.Lang
	}
	return Result{Text: text, Language: lang}, nil
}

func (f *FakeEngine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Options returns the options passed to each call, in order.
func (f *FakeEngine) Options() []Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Options(nil), f.opts...)
}

func (f *FakeEngine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeLoader always returns eng, or a *ModelLoadError wrapping err when err
// is non-nil.
func FakeLoader(eng *FakeEngine, err error) Loader {
	return func(_ context.Context, m Model) (Engine, error) {
		if err != nil {
			return nil, &ModelLoadError{Model: m, Err: err}
		}
		eng.mu.Lock()
		eng.size = m.Size
		eng.mu.Unlock()
		return eng, nil
	}
}
