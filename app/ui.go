// Package app coordinates transcription jobs, recording and persistence for
// every front end.
package app

import "wisp/job"

type Level int

const (
	Info Level = iota
	Warning
	Failure
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Failure:
		return "error"
	}
	return "info"
}

// UI is implemented by each front end. Every method is called on the UI
// thread.
type UI interface {
	SetText(text string)
	// Progress shows or refreshes the modal progress display. It returns
	// false when the user asked to cancel.
	Progress(s job.Snapshot) bool
	HideProgress()
	Notify(level Level, title, msg string)
}
