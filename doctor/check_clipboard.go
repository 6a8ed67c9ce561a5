package doctor

import (
	"fmt"
	"time"
)

func checkClipboard(cfg Config) Result {
	if cfg.Clipboard == nil || cfg.ReadClipboard == nil {
		return Result{Status: Warn, Detail: "clipboard not configured"}
	}
	testStr := fmt.Sprintf("wisp-doctor-%d", time.Now().UnixNano())

	type cbResult struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan cbResult, 1)
	go func() {
		if err := cfg.Clipboard(testStr); err != nil {
			ch <- cbResult{err: err, phase: "write"}
			return
		}
		got, err := cfg.ReadClipboard()
		if err != nil {
			ch <- cbResult{err: err, phase: "read"}
			return
		}
		ch <- cbResult{readback: got}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return Result{Status: Warn, Detail: fmt.Sprintf("clipboard %s failed: %v", res.phase, res.err)}
		}
		if res.readback != testStr {
			return Result{Status: Warn, Detail: fmt.Sprintf("clipboard mismatch: wrote %q, got %q", testStr, res.readback)}
		}
		return Result{Status: Pass, Detail: "clipboard write/read verified"}
	case <-time.After(3 * time.Second):
		return Result{Status: Warn, Detail: "clipboard timed out (clipboard tool hung?)"}
	}
}
