//go:build linux

package paste

import (
	"fmt"
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init creates the uinput device. It must run a moment before the first
// Send so the compositor has picked the device up.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr != nil {
			kbErr = fmt.Errorf("uinput: %w (fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput)", kbErr)
		}
	})
	return kbErr
}

// Send presses Ctrl+V.
func Send() error {
	if err := Init(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}
