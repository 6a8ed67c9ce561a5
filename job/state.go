package job

import "sync/atomic"

// State holds the two flags shared between the coordinator and the worker.
// done means no further result is expected; cancel means the user gave up.
type State struct {
	done   atomic.Bool
	cancel atomic.Bool
}

func (s *State) MarkDone()  { s.done.Store(true) }
func (s *State) Done() bool { return s.done.Load() }

// RequestCancel sets the cancel flag and marks the job done.
func (s *State) RequestCancel() {
	s.cancel.Store(true)
	s.done.Store(true)
}

func (s *State) Cancelled() bool { return s.cancel.Load() }
