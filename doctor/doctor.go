package doctor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"wisp/audio"
	"wisp/config"
	"wisp/hotkey"
	"wisp/recorder"
	"wisp/transcriber"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Warn:
		return "WARN"
	case Fail:
		return "FAIL"
	}
	return "PASS"
}

type Result struct {
	Name   string
	Status Status
	Detail string
}

type Config struct {
	Settings config.Settings
	Keys     config.APIKeys
	Audio    audio.Context // nil fails the capture check
	Device   *audio.DeviceInfo
	Loader   transcriber.Loader

	// SmokeFile, when set, is transcribed with the selected model.
	SmokeFile string
	// Listen is how long the capture check records. Defaults to one second.
	Listen time.Duration

	LookPath      func(string) (string, error) // defaults to exec.LookPath
	ResolveBinary func(string) (string, error) // defaults to transcriber.ResolveWhisperBin
	Clipboard     func(string) error
	ReadClipboard func() (string, error)
	Hotkey        func() (string, error) // defaults to hotkey.Diagnose
}

// Run prints every check and returns an exit code (0 = no failures).
func Run(cfg Config, out io.Writer) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Fprintln(out, "wisp doctor - system diagnostics")
	fmt.Fprintln(out, "================================")

	results := Check(cfg, func(i, n int, r Result) {
		fmt.Fprintf(out, "\n[%d/%d] %s\n  %s: %s\n", i, n, r.Name, r.Status, r.Detail)
	})

	failed := false
	for _, r := range results {
		if r.Status == Fail {
			failed = true
		}
	}
	fmt.Fprintln(out)
	if failed {
		fmt.Fprintln(out, "Some checks failed. See details above.")
		return 1
	}
	fmt.Fprintln(out, "All checks passed!")
	return 0
}

// Check runs the checks in order. report, when non-nil, is called after each
// one.
func Check(cfg Config, report func(i, n int, r Result)) []Result {
	if cfg.Listen <= 0 {
		cfg.Listen = time.Second
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.ResolveBinary == nil {
		cfg.ResolveBinary = transcriber.ResolveWhisperBin
	}
	if cfg.Hotkey == nil {
		cfg.Hotkey = hotkey.Diagnose
	}

	checks := []struct {
		name string
		run  func(Config) Result
	}{
		{"Microphone", checkCapture},
		{"ffmpeg", checkFFmpeg},
		{"Engine", checkEngine},
		{"Clipboard", checkClipboard},
		{"Hotkey", checkHotkey},
	}
	if cfg.SmokeFile != "" {
		checks = append(checks, struct {
			name string
			run  func(Config) Result
		}{"Transcription", checkSmoke})
	}

	results := make([]Result, 0, len(checks))
	for i, c := range checks {
		r := c.run(cfg)
		r.Name = c.name
		if report != nil {
			report(i+1, len(checks), r)
		}
		results = append(results, r)
	}
	return results
}

func checkCapture(cfg Config) Result {
	if cfg.Audio == nil {
		return Result{Status: Fail, Detail: "cannot connect to audio"}
	}
	devices, err := cfg.Audio.Devices()
	if err != nil {
		return Result{Status: Fail, Detail: fmt.Sprintf("cannot list devices: %v", err)}
	}
	if len(devices) == 0 {
		return Result{Status: Fail, Detail: "no capture devices found"}
	}

	captureCfg := audio.CaptureConfig{
		SampleRate: uint32(cfg.Settings.SampleRate),
		Channels:   uint32(cfg.Settings.Channels),
	}
	dev, err := cfg.Audio.NewCapture(cfg.Device, captureCfg)
	if err != nil {
		return Result{Status: Fail, Detail: fmt.Sprintf("cannot open capture device: %v", err)}
	}
	defer dev.Close()

	var peak atomic.Uint64
	s, err := recorder.Start(dev, captureCfg, recorder.WithLevel(func(l float64) {
		for {
			old := peak.Load()
			if l <= math.Float64frombits(old) || peak.CompareAndSwap(old, math.Float64bits(l)) {
				return
			}
		}
	}))
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}
	time.Sleep(cfg.Listen)
	w, err := s.Stop()
	if err != nil {
		return Result{Status: Fail, Detail: fmt.Sprintf("recording error: %v", err)}
	}
	if w.Frames() == 0 {
		return Result{Status: Fail, Detail: "no audio captured from " + dev.DeviceName()}
	}

	level := math.Float64frombits(peak.Load())
	detail := fmt.Sprintf("%d device(s), captured %.1fs from %s, peak level %.3f",
		len(devices), w.Duration().Seconds(), dev.DeviceName(), level)
	if audio.IsBluetooth(dev.DeviceName()) {
		detail += " (bluetooth input lowers quality)"
	}
	if level < 0.002 {
		return Result{Status: Warn, Detail: detail + "; input is silent"}
	}
	return Result{Status: Pass, Detail: detail}
}

func checkFFmpeg(cfg Config) Result {
	p, err := cfg.LookPath("ffmpeg")
	if err != nil {
		return Result{Status: Warn, Detail: "ffmpeg not found; only .wav and .flac files can be opened"}
	}
	return Result{Status: Pass, Detail: p}
}

func checkEngine(cfg Config) Result {
	s := cfg.Settings
	variant, err := transcriber.ParseVariant(s.Engine)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}

	switch variant {
	case transcriber.OpenAI:
		if cfg.Keys.OpenAI == "" {
			return Result{Status: Fail, Detail: "OPENAI_API_KEY not set"}
		}
		return Result{Status: Pass, Detail: "openai key set"}
	case transcriber.Groq:
		if cfg.Keys.Groq == "" {
			return Result{Status: Fail, Detail: "GROQ_API_KEY not set"}
		}
		return Result{Status: Pass, Detail: "groq key set"}
	}

	bin, err := cfg.ResolveBinary(s.WhisperBin)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}
	var have, missing []string
	for _, size := range transcriber.Sizes {
		if _, err := os.Stat(transcriber.WhisperModelPath(s.ModelDir, size)); err == nil {
			have = append(have, string(size))
		} else {
			missing = append(missing, string(size))
		}
	}
	detail := fmt.Sprintf("%s; models in %s: %s", bin, s.ModelDir, listOrNone(have))
	if s.Model == "" {
		return Result{Status: Warn, Detail: detail + "; no model selected"}
	}
	for _, m := range missing {
		if m == s.Model {
			return Result{Status: Fail, Detail: fmt.Sprintf("%s; selected model %q missing at %s",
				detail, m, transcriber.WhisperModelPath(s.ModelDir, transcriber.Size(m)))}
		}
	}
	return Result{Status: Pass, Detail: detail}
}

// checkHotkey only warns: the shortcut is optional.
func checkHotkey(cfg Config) Result {
	detail, err := cfg.Hotkey()
	if err != nil {
		return Result{Status: Warn, Detail: err.Error()}
	}
	return Result{Status: Pass, Detail: detail}
}

func listOrNone(xs []string) string {
	if len(xs) == 0 {
		return "none"
	}
	return strings.Join(xs, ", ")
}

func checkSmoke(cfg Config) Result {
	size, err := transcriber.ParseSize(cfg.Settings.Model)
	if err != nil {
		return Result{Status: Fail, Detail: "select a model first"}
	}
	if cfg.Loader == nil {
		return Result{Status: Fail, Detail: "no engine loader"}
	}
	samples, err := audio.LoadFile(cfg.SmokeFile)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}

	ctx := context.Background()
	m := transcriber.Model{Variant: transcriber.Variant(cfg.Settings.Engine), Size: size}
	start := time.Now()
	eng, err := cfg.Loader(ctx, m)
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}
	defer eng.Close()
	res, err := eng.Transcribe(ctx, samples, transcriber.Options{})
	if err != nil {
		return Result{Status: Fail, Detail: err.Error()}
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return Result{Status: Warn, Detail: "no speech detected"}
	}
	return Result{Status: Pass, Detail: fmt.Sprintf("%s in %s: %q", m, time.Since(start).Round(time.Millisecond), text)}
}
