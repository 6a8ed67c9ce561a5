//go:build darwin

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// player keeps one playback device open; Core Audio start-up is too slow to
// open a device per tone.
type player struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	pcm atomic.Pointer[[]byte]
	pos atomic.Uint32
}

var (
	darwinPlayer *player
	playerOnce   sync.Once
)

func (p *player) open() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

// fill runs on the audio thread.
func (p *player) fill(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	n := uint32(0)
	if pcm := p.pcm.Load(); pcm != nil {
		pos := p.pos.Load()
		n = min(want, uint32(len(*pcm))-pos)
		copy(out[:n], (*pcm)[pos:pos+n])
		p.pos.Store(pos + n)
		if n == 0 {
			p.pcm.Store(nil)
		}
	}
	clear(out[n:want])
}

func (p *player) play(samples []int16) {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.device.Stop()
	p.pos.Store(0)
	p.pcm.Store(&pcm)
	if err := p.device.Start(); err == nil {
		return
	}
	// The device goes stale across sleep and wake.
	p.device.Uninit()
	if err := p.open(); err != nil || p.device.Start() != nil {
		p.pcm.Store(nil)
	}
}

func output(samples []int16) {
	playerOnce.Do(func() {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return
		}
		p := &player{ctx: ctx}
		if err := p.open(); err != nil {
			ctx.Uninit()
			return
		}
		darwinPlayer = p
	})
	if darwinPlayer == nil || len(samples) == 0 {
		return
	}
	darwinPlayer.play(samples)
}
