package job

import (
	"fmt"

	"wisp/audio"
)

// Input is either a file path or samples already at 16kHz mono.
type Input struct {
	Path    string
	Samples []float32
}

func FileInput(path string) Input { return Input{Path: path} }

func SamplesInput(samples []float32) Input { return Input{Samples: samples} }

// Load returns the samples, decoding Path when no samples are held.
func (in Input) Load() ([]float32, error) {
	if in.Samples != nil {
		return in.Samples, nil
	}
	samples, err := audio.LoadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", in.Path, err)
	}
	return samples, nil
}

func (in Input) String() string {
	if in.Samples != nil {
		return fmt.Sprintf("recording (%.1fs)", float64(len(in.Samples))/audio.SampleRate)
	}
	return in.Path
}
