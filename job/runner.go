package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"wisp/log"
	"wisp/transcriber"
)

var ErrJobRunning = errors.New("job already running")

// Runner runs at most one job at a time on its own goroutine.
type Runner struct {
	load   transcriber.Loader
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active *Handle
	closed bool
}

type RunnerOption func(*Runner)

// WithBaseContext sets the parent of the context handed to loaders and
// engines. It defaults to context.Background.
func WithBaseContext(ctx context.Context) RunnerOption {
	return func(r *Runner) { r.ctx = ctx }
}

func NewRunner(load transcriber.Loader, opts ...RunnerOption) *Runner {
	r := &Runner{load: load, ctx: context.Background()}
	for _, o := range opts {
		o(r)
	}
	r.ctx, r.cancel = context.WithCancel(r.ctx)
	return r
}

// Start spawns the worker for a new job. It fails with ErrJobRunning while a
// previous worker goroutine is still alive, even if that job was cancelled.
func (r *Runner) Start(model transcriber.Model, s Strategy, in Input) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("runner closed")
	}
	if r.active != nil {
		return nil, ErrJobRunning
	}

	h := &Handle{
		ID:        uuid.NewString(),
		Model:     model,
		StartedAt: time.Now(),
		strategy:  s,
		input:     in,
		queue:     NewQueue[Event](),
		exited:    make(chan struct{}),
	}
	r.active = h
	log.JobStart(h.ID, s.Name(), string(model.Variant), string(model.Size), in.String())

	go r.work(h)
	return h, nil
}

// Active returns the job whose worker is still alive, or nil.
func (r *Runner) Active() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Close cancels the active job and the context given to engines. It does not
// wait for the worker.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	h := r.active
	r.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
	r.cancel()
}

func (r *Runner) release(h *Handle) {
	r.mu.Lock()
	if r.active == h {
		r.active = nil
	}
	r.mu.Unlock()
}

func (r *Runner) work(h *Handle) {
	var (
		eng   transcriber.Engine
		err   error
		chars int
	)
	defer func() {
		if eng != nil {
			if cerr := eng.Close(); cerr != nil {
				log.Warnf("close engine %s: %v", eng.Name(), cerr)
			}
		}
		r.release(h)
		h.state.MarkDone()
		close(h.exited)
		r.logEnd(h, err, chars)
	}()

	if h.state.Cancelled() {
		return
	}

	err = func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("worker panic: %v", p)
			}
		}()
		eng, err = r.load(r.ctx, h.Model)
		if err != nil {
			var mle *transcriber.ModelLoadError
			if !errors.As(err, &mle) {
				err = &transcriber.ModelLoadError{Model: h.Model, Err: err}
			}
			return err
		}
		emit := func(ev Event) {
			chars += len(ev.Text)
			h.queue.Push(ev)
		}
		return h.strategy.Run(r.ctx, eng, h.input, emit, h.state.Cancelled)
	}()

	if err != nil && !h.state.Cancelled() && !errors.Is(err, context.Canceled) {
		h.queue.Push(Event{Kind: Error, Err: err})
	}
}

func (r *Runner) logEnd(h *Handle, err error, chars int) {
	s := log.JobSummary{
		ID:        h.ID,
		Strategy:  h.strategy.Name(),
		Engine:    string(h.Model.Variant),
		Model:     string(h.Model.Size),
		Outcome:   "done",
		Chars:     chars,
		ElapsedMs: float64(time.Since(h.StartedAt).Microseconds()) / 1000,
	}
	switch {
	case h.state.Cancelled() || errors.Is(err, context.Canceled):
		s.Outcome = "cancelled"
	case err != nil:
		s.Outcome = "failed"
		s.Err = err.Error()
	}
	log.JobEnd(s)
}

// Handle is the coordinator's view of one job.
type Handle struct {
	ID        string
	Model     transcriber.Model
	StartedAt time.Time

	strategy Strategy
	input    Input
	state    State
	queue    *Queue[Event]
	exited   chan struct{}
}

func (h *Handle) Strategy() Strategy { return h.strategy }
func (h *Handle) Input() Input       { return h.input }

// Cancel asks the worker to stop at its next safe point and marks the job
// done for the poller.
func (h *Handle) Cancel()         { h.state.RequestCancel() }
func (h *Handle) Cancelled() bool { return h.state.Cancelled() }

// Done reports that no further results are expected.
func (h *Handle) Done() bool { return h.state.Done() }

func (h *Handle) markDone() { h.state.MarkDone() }

// Next pops the oldest pending event without blocking.
func (h *Handle) Next() (Event, bool) { return h.queue.TryPop() }

func (h *Handle) Pending() int { return h.queue.Len() }

// Exited is closed when the worker goroutine returns.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

// Wait blocks until the worker goroutine returns. Never call it from a UI
// thread.
func (h *Handle) Wait() { <-h.exited }
