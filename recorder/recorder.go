// Package recorder captures microphone audio into memory.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"wisp/audio"
)

var ErrStopped = errors.New("recording already stopped")

type Option func(*Session)

// WithLevel reports the RMS level of every captured block. fn runs on the
// capture goroutine.
func WithLevel(fn func(float64)) Option {
	return func(s *Session) { s.level = fn }
}

// Session appends copies of every captured block until Stop.
type Session struct {
	dev     audio.CaptureDevice
	cfg     audio.CaptureConfig
	level   func(float64)
	started time.Time

	mu      sync.Mutex
	blocks  [][]byte
	size    int
	stopped bool
}

// Start registers the capture callback and starts dev.
func Start(dev audio.CaptureDevice, cfg audio.CaptureConfig, opts ...Option) (*Session, error) {
	s := &Session{dev: dev, cfg: cfg, started: time.Now()}
	for _, o := range opts {
		o(s)
	}
	dev.SetCallback(s.onData)
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return s, nil
}

func (s *Session) onData(data []byte, _ uint32) {
	block := make([]byte, len(data))
	copy(block, data)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.blocks = append(s.blocks, block)
	s.size += len(block)
	s.mu.Unlock()

	if s.level != nil {
		s.level(audio.RMS(audio.PCM16ToInt16(block)))
	}
}

// Elapsed is the wall time since Start.
func (s *Session) Elapsed() time.Duration { return time.Since(s.started) }

// Stop ends capture and returns everything recorded. Callbacks that arrive
// after Stop are dropped.
func (s *Session) Stop() (Waveform, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Waveform{}, ErrStopped
	}
	s.mu.Unlock()

	s.dev.Stop()
	s.dev.ClearCallback()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	pcm := make([]byte, 0, s.size)
	for _, b := range s.blocks {
		pcm = append(pcm, b...)
	}
	s.blocks = nil
	return Waveform{
		PCM:        pcm,
		SampleRate: int(s.cfg.SampleRate),
		Channels:   int(s.cfg.Channels),
	}, nil
}
