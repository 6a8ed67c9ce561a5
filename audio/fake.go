package audio

import (
	"sync"
	"time"
)

// FakeContext hands out FakeCaptures that replay the same scripted blocks.
type FakeContext struct {
	Blocks   [][]byte
	Interval time.Duration
	Names    []string

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(blocks ...[]byte) *FakeContext {
	return &FakeContext{Blocks: blocks, Names: []string{"fake"}}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	var out []DeviceInfo
	for _, n := range f.Names {
		out = append(out, DeviceInfo{ID: n, Name: n})
	}
	return out, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	c := NewFakeCapture(cfg, f.Interval, f.Blocks...)
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// NewFakeContextFromFile replays an audio file as 16kHz mono capture, one
// block every blockDur.
func NewFakeContextFromFile(path string, blockDur time.Duration) (*FakeContext, error) {
	samples, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	pcm := Int16ToPCM16(Float32ToInt16(samples))
	size := max(2, int(blockDur.Seconds()*SampleRate)*2)
	var blocks [][]byte
	for len(pcm) > 0 {
		n := min(size, len(pcm))
		blocks = append(blocks, pcm[:n])
		pcm = pcm[n:]
	}
	ctx := NewFakeContext(blocks...)
	ctx.Interval = blockDur
	return ctx, nil
}

// Captures returns every capture handed out so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

// FakeCapture delivers scripted PCM blocks through a single scratch buffer,
// the way real backends reuse their buffers between callbacks.
type FakeCapture struct {
	blocks   [][]byte
	interval time.Duration
	cfg      CaptureConfig

	mu       sync.Mutex
	cb       DataCallback
	scratch  []byte
	stopCh   chan struct{}
	feedDone chan struct{}
	fed      chan struct{}
	fedOnce  sync.Once
}

func NewFakeCapture(cfg CaptureConfig, interval time.Duration, blocks ...[]byte) *FakeCapture {
	return &FakeCapture{
		blocks:   blocks,
		interval: interval,
		cfg:      cfg,
		fed:      make(chan struct{}),
	}
}

// Fed is closed once every scripted block has been delivered.
func (f *FakeCapture) Fed() <-chan struct{} { return f.fed }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Deliver pushes one block through the callback immediately, as a backend
// thread would. It is a no-op when no callback is registered.
func (f *FakeCapture) Deliver(block []byte) {
	f.mu.Lock()
	cb := f.cb
	if cap(f.scratch) < len(block) {
		f.scratch = make([]byte, len(block))
	}
	buf := f.scratch[:len(block)]
	copy(buf, block)
	f.mu.Unlock()
	if cb == nil {
		return
	}
	cb(buf, uint32(len(buf)/f.cfg.BytesPerFrame()))
	// Scribble over the buffer so consumers that kept a reference notice.
	for i := range buf {
		buf[i] = 0xAA
	}
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	go func() {
		defer close(done)
		for _, b := range f.blocks {
			select {
			case <-stop:
				return
			default:
			}
			f.Deliver(b)
			if f.interval > 0 {
				select {
				case <-stop:
					return
				case <-time.After(f.interval):
				}
			}
		}
		f.fedOnce.Do(func() { close(f.fed) })
	}()
	return nil
}

// Stop returns after the feeding goroutine has exited.
func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.stopCh = nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() {
	f.Stop()
}
