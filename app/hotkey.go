package app

import (
	"time"

	"wisp/hotkey"
	"wisp/log"
	"wisp/recorder"
)

// WatchHotkey records while the global shortcut is held, or between two taps,
// and transcribes each recording when it ends. hk must already be registered.
// The returned function stops watching.
func (c *Controller) WatchHotkey(hk hotkey.Hotkey, longPress time.Duration, opts ...recorder.Option) (stop func()) {
	hy := hotkey.NewHybrid(hk, longPress)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-hy.Start():
				c.opts.Sched.Post(func() { c.hotkeyStart(opts) })
			case <-hy.StopChan():
				c.opts.Sched.Post(c.hotkeyStop)
			}
		}
	}()
	return func() {
		hy.Close()
		close(done)
	}
}

func (c *Controller) hotkeyStart(opts []recorder.Option) {
	if c.session != nil || c.Busy() {
		log.Info("hotkey ignored: busy")
		return
	}
	c.StartRecording(opts...)
}

func (c *Controller) hotkeyStop() {
	if c.session == nil {
		return
	}
	if _, err := c.StopRecording(); err != nil {
		log.Warnf("hotkey stop: %v", err)
		return
	}
	c.TranscribeRecording()
}
