package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       atomic.Bool
	pid            int
	dir            string
)

// JobSummary describes one finished transcription job.
type JobSummary struct {
	ID        string
	Strategy  string
	Engine    string
	Model     string
	Outcome   string // "done" | "failed" | "cancelled"
	Err       string
	Chars     int
	ElapsedMs float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: WISP_LOG_PATH environment variable
	if envPath := os.Getenv("WISP_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func JobStart(id, strategy, engine, model, input string) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("job", id).
		Str("strategy", strategy).
		Str("engine", engine).
		Str("model", model).
		Str("input", input).
		Msg("job_start")
}

func JobEnd(s JobSummary) {
	if !logReady.Load() {
		return
	}
	ev := diagLog.Info()
	if s.Outcome == "failed" {
		ev = diagLog.Error()
	}
	ev = ev.Str("job", s.ID).
		Str("strategy", s.Strategy).
		Str("engine", s.Engine).
		Str("model", s.Model).
		Str("outcome", s.Outcome)
	if s.Err != "" {
		ev = ev.Str("err", s.Err)
	}
	ev.Int("chars", s.Chars).
		Float64("elapsed_ms", s.ElapsedMs).
		Msg("job_end")
}

func RecordingSaved(path string, seconds float64, bytes int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("path", path).
		Float64("audio_s", seconds).
		Int("bytes", bytes).
		Msg("recording_saved")
}

func TranscriptionText(text string) {
	if !logReady.Load() {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if transcribeFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func SessionStart(frontend, engine, model string) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("frontend", frontend).
		Str("engine", engine).
		Str("model", model).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
