//go:build integration

package test_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"wisp/clipboard"
)

const fakeText = "testing one two three"

var (
	testBinary string
	toneWAV    string
)

func TestMain(m *testing.M) {
	testBinary = os.Getenv("WISP_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "WISP_TEST_BIN not set; build wisp and point WISP_TEST_BIN at it")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "wisp-integration")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	toneWAV = filepath.Join(dir, "tone.wav")
	if err := generateToneWAV(toneWAV, 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateToneWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i := 0; i < numSamples; i++ {
		s := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+2*i:], uint16(s))
	}

	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type result struct {
	logDir string
	stdout string
	stderr string
}

func runWisp(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	logDir := t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-config", filepath.Join(logDir, "settings.json"), "-test", toneWAV}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("wisp exited with error: %v\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
	}
	return result{logDir: logDir, stdout: stdout.String(), stderr: stderr.String()}
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireTranscription(t *testing.T, r result) {
	t.Helper()
	if !strings.Contains(r.stdout, fakeText) {
		t.Errorf("stdout = %q, want %q", r.stdout, fakeText)
	}
	if text := readLog(t, r.logDir, "transcribe_log.txt"); !strings.Contains(text, fakeText) {
		t.Errorf("transcribe_log.txt = %q, want %q", text, fakeText)
	}
}

func TestOpenFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	r := runWisp(t, cmds("OPEN "+toneWAV, "WAIT", "SAVE "+out, "QUIT"))
	requireTranscription(t, r)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != fakeText {
		t.Errorf("saved %q", data)
	}
	if diag := readLog(t, r.logDir, "diagnostics_log.txt"); !strings.Contains(diag, "session_start") {
		t.Errorf("diagnostics log lacks session_start:\n%s", diag)
	}
}

func TestRecordAndTranscribe(t *testing.T) {
	wav := filepath.Join(t.TempDir(), "rec.wav")
	r := runWisp(t, cmds("RECORD", "WAIT_AUDIO_DONE", "STOP", "WAV "+wav, "TRANSCRIBE", "WAIT", "QUIT"))
	requireTranscription(t, r)

	data, err := os.ReadFile(wav)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) <= 44 || string(data[0:4]) != "RIFF" {
		t.Errorf("recording is not a WAV file (%d bytes)", len(data))
	}
	if !strings.Contains(r.stderr, "recorded 1.0s") {
		t.Errorf("stderr = %q", r.stderr)
	}
}

func TestChunkedTranscription(t *testing.T) {
	r := runWisp(t, cmds("CHUNKED on", "OPEN "+toneWAV, "WAIT", "QUIT"), "-chunk", "1")
	requireTranscription(t, r)
}

func TestUnknownCommandKeepsGoing(t *testing.T) {
	r := runWisp(t, cmds("BOGUS", "OPEN "+toneWAV, "WAIT", "QUIT"))
	if !strings.Contains(r.stderr, `unknown command "BOGUS"`) {
		t.Errorf("stderr = %q", r.stderr)
	}
	requireTranscription(t, r)
}

func TestTranscribeOneShot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "one.txt")
	r := runWisp(t, "", "-transcribe", toneWAV, "-o", out)
	requireTranscription(t, r)
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file: %v", err)
	}
}

func TestCopy(t *testing.T) {
	if !clipboard.Available() {
		t.Skip("no clipboard")
	}
	sentinel := fmt.Sprintf("wisp-test-sentinel-%d", os.Getpid())
	if err := clipboard.Copy(sentinel); err != nil {
		t.Skipf("clipboard not writable: %v", err)
	}
	runWisp(t, cmds("OPEN "+toneWAV, "WAIT", "COPY", "QUIT"))

	got, err := clipboard.Read()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != fakeText {
		t.Errorf("clipboard = %q, want %q", got, fakeText)
	}
}
