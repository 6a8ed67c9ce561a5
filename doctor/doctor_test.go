package doctor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wisp/audio"
	"wisp/config"
	"wisp/transcriber"
)

func loudBlock() []byte {
	s := make([]int16, 1600)
	for i := range s {
		s[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return audio.Int16ToPCM16(s)
}

func testSettings(t *testing.T) config.Settings {
	s := config.DefaultSettings()
	s.SampleRate = 16000
	s.Channels = 1
	s.ModelDir = t.TempDir()
	return s
}

func testConfig(t *testing.T) Config {
	var clip string
	return Config{
		Settings:      testSettings(t),
		Audio:         audio.NewFakeContext(loudBlock(), loudBlock()),
		Listen:        20 * time.Millisecond,
		LookPath:      func(string) (string, error) { return "", errors.New("not found") },
		ResolveBinary: func(string) (string, error) { return "/usr/bin/whisper-cli", nil },
		Clipboard:     func(s string) error { clip = s; return nil },
		ReadClipboard: func() (string, error) { return clip, nil },
		Hotkey:        func() (string, error) { return "", errors.New("no keyboards") },
	}
}

func byName(results []Result, name string) Result {
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	return Result{Name: name, Status: -1}
}

func TestCaptureCheck(t *testing.T) {
	cfg := testConfig(t)
	r := checkCapture(cfg)
	if r.Status != Pass {
		t.Fatalf("capture = %v: %s", r.Status, r.Detail)
	}
	if !strings.Contains(r.Detail, "fake") {
		t.Errorf("detail %q should name the device", r.Detail)
	}

	cfg.Audio = audio.NewFakeContext(make([]byte, 3200))
	if r := checkCapture(cfg); r.Status != Warn {
		t.Errorf("silent capture = %v, want WARN", r.Status)
	}

	cfg.Audio = nil
	if r := checkCapture(cfg); r.Status != Fail {
		t.Errorf("no audio = %v, want FAIL", r.Status)
	}

	cfg.Audio = &audio.FakeContext{}
	if r := checkCapture(cfg); r.Status != Fail {
		t.Errorf("no devices = %v, want FAIL", r.Status)
	}
}

func TestEngineCheck(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(transcriber.WhisperModelPath(cfg.Settings.ModelDir, transcriber.Base), []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		engine string
		model  string
		keys   config.APIKeys
		want   Status
	}{
		{"whisper no model", "whispercpp", "", config.APIKeys{}, Warn},
		{"whisper base present", "whispercpp", "base", config.APIKeys{}, Pass},
		{"whisper large missing", "whispercpp", "large", config.APIKeys{}, Fail},
		{"openai without key", "openai", "base", config.APIKeys{}, Fail},
		{"openai with key", "openai", "base", config.APIKeys{OpenAI: "k"}, Pass},
		{"groq without key", "groq", "small", config.APIKeys{OpenAI: "k"}, Fail},
		{"groq with key", "groq", "small", config.APIKeys{Groq: "k"}, Pass},
		{"unknown engine", "vosk", "base", config.APIKeys{}, Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Settings.Engine = tt.engine
			c.Settings.Model = tt.model
			c.Keys = tt.keys
			if r := checkEngine(c); r.Status != tt.want {
				t.Errorf("status = %v, want %v (%s)", r.Status, tt.want, r.Detail)
			}
		})
	}
}

func TestEngineCheckMissingBinary(t *testing.T) {
	cfg := testConfig(t)
	cfg.ResolveBinary = func(string) (string, error) { return "", errors.New("whisper.cpp binary not found") }
	if r := checkEngine(cfg); r.Status != Fail {
		t.Errorf("status = %v, want FAIL", r.Status)
	}
}

func TestCheckRunsAllAndSmoke(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.Model = "base"
	if err := os.WriteFile(transcriber.WhisperModelPath(cfg.Settings.ModelDir, transcriber.Base), []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.SmokeFile = filepath.Join(t.TempDir(), "smoke.wav")
	if err := audio.WriteWAV(cfg.SmokeFile, audio.PCM16ToInt16(loudBlock()), 16000, 1); err != nil {
		t.Fatal(err)
	}
	cfg.Loader = transcriber.FakeLoader(transcriber.NewFake(" hello there "), nil)

	var reported []string
	results := Check(cfg, func(i, n int, r Result) {
		if n != 6 {
			t.Errorf("n = %d, want 6", n)
		}
		reported = append(reported, r.Name)
	})
	if len(results) != 6 || len(reported) != 6 {
		t.Fatalf("results = %d, reported = %d", len(results), len(reported))
	}

	if r := byName(results, "ffmpeg"); r.Status != Warn {
		t.Errorf("ffmpeg = %v, want WARN", r.Status)
	}
	if r := byName(results, "Clipboard"); r.Status != Pass {
		t.Errorf("clipboard = %v: %s", r.Status, r.Detail)
	}
	if r := byName(results, "Hotkey"); r.Status != Warn {
		t.Errorf("hotkey = %v, want WARN", r.Status)
	}
	smoke := byName(results, "Transcription")
	if smoke.Status != Pass || !strings.Contains(smoke.Detail, `"hello there"`) {
		t.Errorf("smoke = %v: %s", smoke.Status, smoke.Detail)
	}
}

func TestSmokeLoadFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.Model = "base"
	cfg.SmokeFile = filepath.Join(t.TempDir(), "smoke.wav")
	if err := audio.WriteWAV(cfg.SmokeFile, audio.PCM16ToInt16(loudBlock()), 16000, 1); err != nil {
		t.Fatal(err)
	}
	cfg.Loader = transcriber.FakeLoader(nil, transcriber.ErrMissingAPIKey)
	if r := checkSmoke(cfg); r.Status != Fail {
		t.Errorf("status = %v, want FAIL", r.Status)
	}

	cfg.Settings.Model = ""
	if r := checkSmoke(cfg); r.Status != Fail || !strings.Contains(r.Detail, "select a model") {
		t.Errorf("no model: %v %s", r.Status, r.Detail)
	}
}

func TestClipboardCheckFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clipboard = func(string) error { return errors.New("no display") }
	if r := checkClipboard(cfg); r.Status != Warn || !strings.Contains(r.Detail, "write") {
		t.Errorf("clipboard = %v: %s", r.Status, r.Detail)
	}
	cfg.Clipboard = nil
	if r := checkClipboard(cfg); r.Status != Warn {
		t.Errorf("unconfigured clipboard = %v", r.Status)
	}
}
