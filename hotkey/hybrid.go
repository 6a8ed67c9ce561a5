package hotkey

import (
	"sync"
	"time"
)

// Hybrid turns one shortcut into tap-to-toggle and hold-to-talk. A press
// always starts; a hold past longPress stops on release, a shorter tap keeps
// recording until the next press is released.
type Hybrid struct {
	startCh chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	toggle bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.startCh }

// StopChan is signalled when the current recording should end, in either mode.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current press was a tap.
func (h *Hybrid) IsToggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggle
}

// Close stops the state machine. The wrapped Hotkey is left registered.
func (h *Hybrid) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hybrid) setToggle(on bool) {
	h.mu.Lock()
	h.toggle = on
	h.mu.Unlock()
}

func (h *Hybrid) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		if !h.wait(hk.Keydown()) {
			return
		}
		h.setToggle(false)
		notify(h.startCh)

		timer := time.NewTimer(longPress)
		select {
		case <-h.done:
			timer.Stop()
			return
		case <-timer.C:
			if !h.wait(hk.Keyup()) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			h.setToggle(true)
			if !h.wait(hk.Keydown()) || !h.wait(hk.Keyup()) {
				return
			}
			h.setToggle(false)
		}
		notify(h.stopCh)
	}
}
