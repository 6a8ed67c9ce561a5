package audio

import "strings"

const (
	WAVHeaderSize = 44

	// SampleRate is the rate every engine decodes at.
	SampleRate = 16000
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives interleaved PCM16LE frames. data is only valid for
// the duration of the call; backends reuse the buffer.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	Gain       int // software gain applied by backends that support it; 0 means unity
}

// BytesPerFrame is the size of one interleaved PCM16 frame.
func (c CaptureConfig) BytesPerFrame() int {
	ch := int(c.Channels)
	if ch == 0 {
		ch = 1
	}
	return ch * 2
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice delivers audio to the registered callback between Start and
// Stop. Stop returns only after the callback can no longer fire.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
