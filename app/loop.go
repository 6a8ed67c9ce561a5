package app

import (
	"context"
	"sync"

	"wisp/job"
)

// Loop is a UI thread for front ends without their own event loop.
type Loop struct {
	queue  *job.Queue[func()]
	wake   chan struct{}
	quit   chan struct{}
	closed chan struct{}
	once   sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		queue:  job.NewQueue[func()](),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. It never blocks.
func (l *Loop) Post(fn func()) {
	l.queue.Push(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Scheduler adapts the loop for job.Poller.
func (l *Loop) Scheduler() job.Scheduler {
	return job.NewTickerScheduler(l.Post)
}

// Run executes posted functions until ctx ends or Quit is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.closed)
	for {
		for {
			fn, ok := l.queue.TryPop()
			if !ok {
				break
			}
			fn()
		}
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case <-l.wake:
		}
	}
}

// Quit stops Run after the function currently executing.
func (l *Loop) Quit() {
	l.once.Do(func() { close(l.quit) })
}

// Closed is closed when Run returns.
func (l *Loop) Closed() <-chan struct{} { return l.closed }
