package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type scriptedRunner struct {
	stdout, stderr string
	err            error
	args           []string
}

func (r *scriptedRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	r.args = args
	return r.stdout, r.stderr, r.err
}

func newTestWhisper(t *testing.T, r commandRunner) *WhisperCppEngine {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-small.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	w, err := newWhisperCpp("whisper-cli", dir, Small, r)
	if err != nil {
		t.Fatalf("newWhisperCpp: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestWhisperCppAutoDetect(t *testing.T) {
	r := &scriptedRunner{
		stdout: "\n Hello world.\n How are you?\n",
		stderr: "whisper_full_with_state: auto-detected language: en (p = 0.97)\n",
	}
	w := newTestWhisper(t, r)

	res, err := w.Transcribe(context.Background(), silence(1600), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "Hello world. How are you?" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Language != "en" {
		t.Errorf("Language = %q", res.Language)
	}
	if argAfter(r.args, "-l") != "auto" {
		t.Errorf("-l = %q, want auto", argAfter(r.args, "-l"))
	}
	if filepath.Base(argAfter(r.args, "-m")) != "ggml-small.bin" {
		t.Errorf("-m = %q", argAfter(r.args, "-m"))
	}
}

func TestWhisperCppPinnedLanguage(t *testing.T) {
	r := &scriptedRunner{stdout: "Bonjour"}
	w := newTestWhisper(t, r)

	res, err := w.Transcribe(context.Background(), silence(10), Options{Language: "fr"})
	if err != nil {
		t.Fatal(err)
	}
	if argAfter(r.args, "-l") != "fr" || res.Language != "fr" {
		t.Errorf("-l = %q, Language = %q", argAfter(r.args, "-l"), res.Language)
	}
}

func TestWhisperCppFailure(t *testing.T) {
	boom := errors.New("boom")
	w := newTestWhisper(t, &scriptedRunner{err: boom})
	if _, err := w.Transcribe(context.Background(), silence(10), Options{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestWhisperCppMissingModel(t *testing.T) {
	_, err := newWhisperCpp("whisper-cli", t.TempDir(), Large, &scriptedRunner{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}
