package job

import (
	"strings"
	"time"
)

const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultAssumedDuration = 60 * time.Second
)

type PollerConfig struct {
	Interval        time.Duration
	AssumedDuration time.Duration // whole-file progress estimate reaches 99% here
	MaxPerTick      int
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.AssumedDuration <= 0 {
		c.AssumedDuration = DefaultAssumedDuration
	}
	if c.MaxPerTick <= 0 {
		c.MaxPerTick = 1
	}
	return c
}

// Snapshot is what a view shows while a job runs.
type Snapshot struct {
	Text      string
	Progress  float64
	Elapsed   time.Duration
	Estimated bool // Progress is a time-based guess
}

// Outcome is delivered exactly once when a job ends.
type Outcome struct {
	Text      string
	Progress  float64
	Err       error
	Cancelled bool
	Elapsed   time.Duration
}

// View is the presentation side of a running job. Both methods are called
// on the UI thread. Update returns false when the user cancels.
type View interface {
	Update(s Snapshot) bool
	Finish(o Outcome)
}

// Poller drains a job's events on the UI thread at a fixed cadence.
type Poller struct {
	h     *Handle
	sched Scheduler
	view  View
	cfg   PollerConfig
	now   func() time.Time

	stop     func()
	finished bool
	text     strings.Builder
	progress float64
	measured bool
	err      error
}

func NewPoller(h *Handle, sched Scheduler, view View, cfg PollerConfig) *Poller {
	return &Poller{
		h:     h,
		sched: sched,
		view:  view,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// Start begins ticking. Call it on the UI thread.
func (p *Poller) Start() {
	p.stop = p.sched.Every(p.cfg.Interval, p.Tick)
}

func (p *Poller) Finished() bool { return p.finished }

// Tick handles one poll. After the outcome is delivered it does nothing.
func (p *Poller) Tick() {
	if p.finished {
		return
	}
	if p.h.Done() {
		p.finish()
		return
	}

	drained := 0
	for drained < p.cfg.MaxPerTick {
		ev, ok := p.h.Next()
		if !ok {
			break
		}
		drained++
		if ev.Kind == Error {
			p.err = ev.Err
			p.h.markDone()
			return
		}
		p.apply(ev)
		if !p.view.Update(p.snapshot()) {
			p.h.Cancel()
			return
		}
	}
	if drained == 0 && !p.view.Update(p.snapshot()) {
		p.h.Cancel()
	}
}

func (p *Poller) apply(ev Event) {
	switch ev.Kind {
	case Partial, Final:
		p.text.WriteString(ev.Text)
		p.progress = ev.Progress
		p.measured = true
	case Error:
		if p.err == nil {
			p.err = ev.Err
		}
	}
}

func (p *Poller) snapshot() Snapshot {
	elapsed := p.now().Sub(p.h.StartedAt)
	s := Snapshot{Text: p.text.String(), Progress: p.progress, Elapsed: elapsed}
	if !p.measured {
		s.Progress = EstimateProgress(elapsed, p.cfg.AssumedDuration)
		s.Estimated = true
	}
	return s
}

func (p *Poller) finish() {
	p.finished = true
	if p.stop != nil {
		p.stop()
	}

	cancelled := p.h.Cancelled()
	for {
		ev, ok := p.h.Next()
		if !ok {
			break
		}
		if !cancelled {
			p.apply(ev)
		}
	}

	out := Outcome{
		Text:     p.text.String(),
		Progress: p.progress,
		Elapsed:  p.now().Sub(p.h.StartedAt),
	}
	switch {
	case cancelled:
		out.Cancelled = true
	case p.err != nil:
		out.Err = p.err
	default:
		out.Progress = 100
	}
	p.view.Finish(out)
}
