// Package hotkey watches the global record shortcut, Ctrl+Shift+Space.
package hotkey

// Combo is the shortcut every backend listens for.
const Combo = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// notify delivers without blocking; a pending event is enough.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
