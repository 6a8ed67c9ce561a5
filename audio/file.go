package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mewkiz/flac"
)

// Extensions lists the audio file types offered by the open dialogs.
var Extensions = []string{".wav", ".mp3", ".m4a", ".flac"}

var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile decodes an audio file to 16kHz mono float32 samples.
func LoadFile(path string) ([]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return loadWAV(path)
	case ".flac":
		return loadFLAC(path)
	default:
		return loadFFmpeg(path)
	}
}

func loadFLAC(path string) ([]float32, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flac: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	var samples []float32
	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode flac: %w", err)
		}
		for i := 0; i < int(fr.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(fr.Subframes[ch].Samples[i])/scale)
			}
		}
	}
	return ToMono16k(samples, int(stream.Info.SampleRate), channels), nil
}

func loadFFmpeg(path string) ([]float32, error) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, ErrFFmpegMissing
	}
	cmd := exec.Command(bin, "-nostdin", "-v", "error", "-i", path,
		"-f", "s16le", "-ac", "1", "-ar", fmt.Sprint(SampleRate), "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Int16ToFloat32(PCM16ToInt16(out)), nil
}
