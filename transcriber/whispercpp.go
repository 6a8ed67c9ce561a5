package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"wisp/audio"
)

var whisperModelFiles = map[Size]string{
	Base:  "ggml-base.bin",
	Small: "ggml-small.bin",
	Large: "ggml-large-v3.bin",
}

var detectedLanguage = regexp.MustCompile(`auto-detected language:\s*([a-z]{2})`)

// commandRunner runs a process and returns its stdout and stderr.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// WhisperCppEngine runs the whisper.cpp CLI on a temporary WAV per call.
type WhisperCppEngine struct {
	bin       string
	modelPath string
	size      Size
	runner    commandRunner
	tmpDir    string
}

// WhisperModelPath is where the ggml file for size is expected.
func WhisperModelPath(modelDir string, size Size) string {
	return filepath.Join(modelDir, whisperModelFiles[size])
}

// ResolveWhisperBin finds the whisper.cpp binary, trying the newer and older
// executable names when bin is empty.
func ResolveWhisperBin(bin string) (string, error) {
	candidates := []string{bin}
	if bin == "" {
		candidates = []string{"whisper-cli", "whisper-cpp", "main"}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("whisper.cpp binary not found (tried %s)", strings.Join(candidates, ", "))
}

func NewWhisperCpp(bin, modelDir string, size Size) (*WhisperCppEngine, error) {
	path, err := ResolveWhisperBin(bin)
	if err != nil {
		return nil, err
	}
	return newWhisperCpp(path, modelDir, size, execRunner{})
}

func newWhisperCpp(bin, modelDir string, size Size, runner commandRunner) (*WhisperCppEngine, error) {
	modelPath := WhisperModelPath(modelDir, size)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	tmp, err := os.MkdirTemp("", "wisp-whisper-")
	if err != nil {
		return nil, err
	}
	return &WhisperCppEngine{
		bin:       bin,
		modelPath: modelPath,
		size:      size,
		runner:    runner,
		tmpDir:    tmp,
	}, nil
}

func (w *WhisperCppEngine) Name() string { return "whispercpp" }

func (w *WhisperCppEngine) Model() Model { return Model{Variant: WhisperCpp, Size: w.size} }

func (w *WhisperCppEngine) Close() error {
	return os.RemoveAll(w.tmpDir)
}

func (w *WhisperCppEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	wavPath := filepath.Join(w.tmpDir, "input.wav")
	if err := audio.WriteWAV(wavPath, audio.Float32ToInt16(samples), audio.SampleRate, 1); err != nil {
		return Result{}, err
	}
	defer os.Remove(wavPath)

	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", lang,
		"-nt",
	}
	stdout, stderr, err := w.runner.Run(ctx, w.bin, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("whisper.cpp exited %d: %s", exitErr.ExitCode(), lastLine(stderr))
		}
		return Result{}, fmt.Errorf("whisper.cpp: %w", err)
	}

	res := Result{Text: joinLines(stdout), Language: opts.Language}
	if res.Language == "" {
		if m := detectedLanguage.FindStringSubmatch(stderr); m != nil {
			res.Language = m[1]
		}
	}
	return res, nil
}

func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
