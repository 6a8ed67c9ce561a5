package job

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs functions on the UI thread.
type Scheduler interface {
	Post(fn func())
	// Every calls fn on the UI thread every d until stop is called.
	Every(d time.Duration, fn func()) (stop func())
}

// TickerScheduler builds Every on top of a post-to-UI-thread primitive such
// as fyne.Do or tea.Program.Send.
type TickerScheduler struct {
	post func(func())
}

func NewTickerScheduler(post func(func())) *TickerScheduler {
	return &TickerScheduler{post: post}
}

func (s *TickerScheduler) Post(fn func()) { s.post(fn) }

// Every skips a tick while the previous one is still waiting to run, so a
// busy UI thread never accumulates a backlog.
func (s *TickerScheduler) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})
	var pending, stopped atomic.Bool

	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if !pending.CompareAndSwap(false, true) {
					continue
				}
				s.post(func() {
					pending.Store(false)
					if !stopped.Load() {
						fn()
					}
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			t.Stop()
			close(done)
		})
	}
}

// ManualScheduler is driven by hand. Posted functions run on RunPending and
// repeating callbacks on Fire, both on the caller's goroutine.
type ManualScheduler struct {
	mu      sync.Mutex
	posted  []func()
	tickers map[int]func()
	next    int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tickers: make(map[int]func())}
}

func (m *ManualScheduler) Post(fn func()) {
	m.mu.Lock()
	m.posted = append(m.posted, fn)
	m.mu.Unlock()
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.tickers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.tickers, id)
		m.mu.Unlock()
	}
}

// RunPending runs posted functions, including ones posted while running.
func (m *ManualScheduler) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.posted) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.posted[0]
		m.posted = m.posted[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Fire runs every active repeating callback once.
func (m *ManualScheduler) Fire() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.tickers))
	for i := 0; i < m.next; i++ {
		if fn, ok := m.tickers[i]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Active reports how many repeating callbacks are registered.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}
