// Package paste sends the platform paste keystroke to the focused window.
package paste

import "errors"

var ErrUnsupported = errors.New("paste keystroke not supported on this platform")
