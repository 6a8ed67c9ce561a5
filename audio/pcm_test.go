package audio

import (
	"math"
	"testing"
)

func TestPCM16RoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	got := PCM16ToInt16(Int16ToPCM16(in))
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestPCM16DropsOddByte(t *testing.T) {
	if got := PCM16ToInt16([]byte{1, 0, 7}); len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want [1]", got)
	}
}

func TestFloat32ToInt16Clamps(t *testing.T) {
	got := Float32ToInt16([]float32{2, -2, 0.5})
	if got[0] != 32767 || got[1] != -32768 {
		t.Errorf("clamp = %v", got[:2])
	}
	if got[2] < 16383 || got[2] > 16384 {
		t.Errorf("half scale = %d", got[2])
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		in       int
		from, to int
		want     int
	}{
		{"same rate", 100, 16000, 16000, 100},
		{"down 3x", 48000, 48000, 16000, 16000},
		{"up 2x", 8000, 8000, 16000, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resample(make([]float32, tt.in), tt.from, tt.to)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResampleInterpolates(t *testing.T) {
	got := Resample([]float32{0, 1, 0, 1}, 1, 2)
	if math.Abs(float64(got[1])-0.5) > 1e-6 {
		t.Errorf("midpoint = %v, want 0.5", got[1])
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS(nil) != 0")
	}
	got := RMS([]int16{16384, -16384})
	if math.Abs(got-0.5) > 1e-6 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
}
