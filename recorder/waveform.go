package recorder

import (
	"time"

	"wisp/audio"
	"wisp/log"
)

// Waveform is interleaved PCM16LE audio.
type Waveform struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

func (w Waveform) Frames() int {
	if w.Channels <= 0 {
		return 0
	}
	return len(w.PCM) / (2 * w.Channels)
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.Frames()) * time.Second / time.Duration(w.SampleRate)
}

// Save writes a 16-bit WAV at the capture rate and channel count.
func (w Waveform) Save(path string) error {
	if err := audio.WriteWAV(path, audio.PCM16ToInt16(w.PCM), w.SampleRate, w.Channels); err != nil {
		return err
	}
	log.RecordingSaved(path, w.Duration().Seconds(), len(w.PCM))
	return nil
}

// Samples converts to 16kHz mono float32 for transcription.
func (w Waveform) Samples() []float32 {
	return audio.ToMono16k(audio.Int16ToFloat32(audio.PCM16ToInt16(w.PCM)), w.SampleRate, w.Channels)
}
