//go:build darwin

package paste

import "github.com/micmonay/keybd_event"

// Init is a no-op; macOS needs no virtual input device.
func Init() error { return nil }

// Send presses Cmd+V.
func Send() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true)
	return kb.Launching()
}
