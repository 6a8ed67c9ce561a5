package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wisp/audio"
	"wisp/beep"
	"wisp/config"
	"wisp/hotkey"
	"wisp/job"
	"wisp/transcriber"
)

func TestMain(m *testing.M) {
	beep.Disable()
	os.Exit(m.Run())
}

type note struct {
	level      Level
	title, msg string
}

type fakeUI struct {
	text      string
	texts     []string
	snapshots []job.Snapshot
	hidden    int
	notes     []note
	cancel    bool
}

func (u *fakeUI) SetText(s string) {
	u.text = s
	u.texts = append(u.texts, s)
}

func (u *fakeUI) Progress(s job.Snapshot) bool {
	u.snapshots = append(u.snapshots, s)
	return !u.cancel
}

func (u *fakeUI) HideProgress() { u.hidden++ }

func (u *fakeUI) Notify(l Level, title, msg string) {
	u.notes = append(u.notes, note{l, title, msg})
}

func (u *fakeUI) lastNote() note {
	if len(u.notes) == 0 {
		return note{}
	}
	return u.notes[len(u.notes)-1]
}

type harness struct {
	c     *Controller
	ui    *fakeUI
	sched *job.ManualScheduler
	eng   *transcriber.FakeEngine
	store *config.MemoryStore
	audio *audio.FakeContext
}

func newHarness(t *testing.T, texts ...string) *harness {
	t.Helper()
	h := &harness{
		ui:    &fakeUI{},
		sched: job.NewManualScheduler(),
		eng:   transcriber.NewFake(texts...),
		store: &config.MemoryStore{},
		audio: audio.NewFakeContext(),
	}
	settings := config.DefaultSettings()
	settings.SampleRate = 16000
	settings.Channels = 1
	settings.ChunkSeconds = 1
	h.c = New(Options{
		Loader:   transcriber.FakeLoader(h.eng, nil),
		Sched:    h.sched,
		UI:       h.ui,
		Store:    h.store,
		Settings: settings,
		Audio:    h.audio,
	})
	t.Cleanup(h.c.Close)
	return h
}

// finish waits for the worker and ticks until the outcome is shown.
func (h *harness) finish(t *testing.T) {
	t.Helper()
	h.c.Job().Wait()
	h.sched.Fire()
	if h.c.Busy() {
		t.Fatal("controller still busy after the final tick")
	}
}

func writeWAV(t *testing.T, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	if err := audio.WriteWAV(path, make([]int16, int(seconds*16000)), 16000, 1); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeRequiresModel(t *testing.T) {
	h := newHarness(t, "x")
	if err := h.c.RequireModel(); !errors.Is(err, ErrNoModelSelected) {
		t.Errorf("RequireModel err = %v", err)
	}
	err := h.c.TranscribeFile(writeWAV(t, 1))
	if !errors.Is(err, ErrNoModelSelected) {
		t.Fatalf("err = %v, want ErrNoModelSelected", err)
	}
	if n := h.ui.lastNote(); n.title != "No Model Selected" || n.level != Failure {
		t.Errorf("note = %+v", n)
	}
	if h.c.Job() != nil {
		t.Error("job started without a model")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	h := newHarness(t, "x")
	h.c.SelectModel("base")
	missing := filepath.Join(t.TempDir(), "missing.wav")

	err := h.c.TranscribeFile(missing)
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
	n := h.ui.lastNote()
	if n.title != "File Not Found" || !strings.Contains(n.msg, missing) {
		t.Errorf("note = %+v", n)
	}
	if h.c.Job() != nil {
		t.Error("job started for a missing file")
	}
}

func TestTranscribeWholeFile(t *testing.T) {
	h := newHarness(t, "hello world")
	h.c.SelectModel("small")

	if err := h.c.TranscribeFile(writeWAV(t, 2)); err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if !h.c.Busy() {
		t.Error("not busy after start")
	}
	h.finish(t)

	if h.c.Text() != "hello world" || h.ui.text != "hello world" {
		t.Errorf("text = %q, ui = %q", h.c.Text(), h.ui.text)
	}
	if h.ui.hidden != 1 {
		t.Errorf("HideProgress called %d times", h.ui.hidden)
	}
	if h.c.Count() != 1 {
		t.Errorf("Count = %d", h.c.Count())
	}
	if h.eng.Model().Size != transcriber.Small {
		t.Errorf("engine loaded for %v", h.eng.Model())
	}
	for _, n := range h.ui.notes {
		if n.level == Failure {
			t.Errorf("unexpected failure note %+v", n)
		}
	}
}

func TestTranscribeChunked(t *testing.T) {
	h := newHarness(t, "one", "two", "three")
	h.c.SelectModel("base")
	h.c.SetChunked(true)

	if err := h.c.TranscribeFile(writeWAV(t, 2.5)); err != nil {
		t.Fatal(err)
	}
	h.finish(t)
	if h.c.Text() != "one two three " {
		t.Errorf("text = %q", h.c.Text())
	}
}

func TestTranscribeFailureNotifies(t *testing.T) {
	h := newHarness(t)
	h.eng.FailAt = 1
	h.c.SelectModel("base")

	h.c.TranscribeFile(writeWAV(t, 1))
	h.finish(t)

	n := h.ui.lastNote()
	if n.level != Failure || n.title != "Error" || !strings.Contains(n.msg, "Transcription failed") {
		t.Errorf("note = %+v", n)
	}
	if h.c.Count() != 0 {
		t.Errorf("Count = %d after failure", h.c.Count())
	}
}

func TestModelLoadFailureNotifiesOnce(t *testing.T) {
	ui := &fakeUI{}
	sched := job.NewManualScheduler()
	settings := config.DefaultSettings()
	settings.SampleRate = 16000
	settings.Channels = 1
	c := New(Options{
		Loader:   transcriber.FakeLoader(nil, errors.New("ggml-base.bin missing")),
		Sched:    sched,
		UI:       ui,
		Store:    &config.MemoryStore{},
		Settings: settings,
		Audio:    audio.NewFakeContext(),
	})
	t.Cleanup(c.Close)
	c.SelectModel("base")

	if err := c.TranscribeFile(writeWAV(t, 1)); err != nil {
		t.Fatal(err)
	}
	c.Job().Wait()
	for i := 0; i < 4; i++ {
		sched.Fire()
	}

	if c.Busy() {
		t.Fatal("controller still busy after a failed load")
	}
	if len(ui.notes) != 1 {
		t.Fatalf("got %d notifications, want 1: %+v", len(ui.notes), ui.notes)
	}
	n := ui.notes[0]
	if n.level != Failure || !strings.Contains(n.msg, "ggml-base.bin missing") {
		t.Errorf("note = %+v", n)
	}
	if ui.hidden == 0 {
		t.Error("progress indicator never hidden")
	}
	if c.Count() != 0 {
		t.Errorf("Count = %d after failed load", c.Count())
	}
}

func TestUserCancelIsSilent(t *testing.T) {
	h := newHarness(t, "never shown")
	h.eng.Gate = make(chan struct{})
	h.c.SelectModel("base")
	h.ui.cancel = true

	h.c.TranscribeFile(writeWAV(t, 1))
	h.sched.Fire()
	if !h.c.Job().Cancelled() {
		t.Fatal("progress cancel did not reach the job")
	}
	h.sched.Fire()
	close(h.eng.Gate)
	h.c.Job().Wait()

	if h.ui.hidden != 1 {
		t.Errorf("HideProgress called %d times", h.ui.hidden)
	}
	if len(h.ui.notes) != 0 {
		t.Errorf("notes after cancel = %+v", h.ui.notes)
	}
	if h.c.Text() != "" {
		t.Errorf("text = %q", h.c.Text())
	}
}

func TestSecondJobRejected(t *testing.T) {
	h := newHarness(t, "a")
	h.eng.Gate = make(chan struct{})
	h.c.SelectModel("base")
	path := writeWAV(t, 1)

	if err := h.c.TranscribeFile(path); err != nil {
		t.Fatal(err)
	}
	first := h.c.Job()
	if err := h.c.TranscribeFile(path); !errors.Is(err, job.ErrJobRunning) {
		t.Fatalf("err = %v, want ErrJobRunning", err)
	}
	if h.c.Job() != first {
		t.Error("second start replaced the running job")
	}
	close(h.eng.Gate)
	h.finish(t)
}

func TestCancelFromController(t *testing.T) {
	h := newHarness(t, "a")
	h.eng.Gate = make(chan struct{})
	h.c.SelectModel("base")
	h.c.TranscribeFile(writeWAV(t, 1))

	h.c.Cancel()
	close(h.eng.Gate)
	h.finish(t)
	if h.c.Count() != 0 || len(h.ui.notes) != 0 {
		t.Errorf("count = %d, notes = %+v", h.c.Count(), h.ui.notes)
	}
}

func TestSettingsPersisted(t *testing.T) {
	h := newHarness(t)
	if err := h.c.SelectModel("huge"); err == nil {
		t.Error("SelectModel(huge) succeeded")
	}
	h.c.SelectModel("large")
	h.c.SetEngine("groq")
	h.c.SetChunked(true)

	if h.store.Saves != 3 {
		t.Errorf("Saves = %d, want 3", h.store.Saves)
	}
	s := h.store.Settings
	if s.Model != "large" || s.Engine != "groq" || !s.Chunked {
		t.Errorf("stored = %+v", s)
	}
	m, ok := h.c.Model()
	if !ok || m != (transcriber.Model{Variant: transcriber.Groq, Size: transcriber.Large}) {
		t.Errorf("Model = %v, %v", m, ok)
	}
}

func TestSaveTextUTF8(t *testing.T) {
	h := newHarness(t, "héllo wörld ✓")
	h.c.SelectModel("base")
	h.c.TranscribeFile(writeWAV(t, 1))
	h.finish(t)

	path := filepath.Join(t.TempDir(), "out.txt")
	if err := h.c.SaveText(path); err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "héllo wörld ✓" {
		t.Errorf("file = %q", data)
	}
}

func TestCopyText(t *testing.T) {
	h := newHarness(t, "copy me")
	var copied string
	h.c.opts.Clipboard = func(s string) error {
		copied = s
		return nil
	}
	if err := h.c.CopyText(); !errors.Is(err, ErrNoText) {
		t.Errorf("CopyText before any job err = %v", err)
	}
	h.c.SelectModel("base")
	h.c.TranscribeFile(writeWAV(t, 1))
	h.finish(t)
	if err := h.c.CopyText(); err != nil || copied != "copy me" {
		t.Errorf("copied %q, err %v", copied, err)
	}
}

func TestRecordSaveAndTranscribe(t *testing.T) {
	h := newHarness(t, "recorded speech")
	pcm := audio.Int16ToPCM16(make([]int16, 8000))
	h.audio.Blocks = [][]byte{pcm, pcm}

	if err := h.c.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := h.c.StartRecording(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second StartRecording err = %v", err)
	}
	<-h.audio.Captures()[0].Fed()

	w, err := h.c.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if w.Duration() != time.Second {
		t.Errorf("Duration = %v, want 1s", w.Duration())
	}
	if _, err := h.c.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("second StopRecording err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "rec.wav")
	if err := h.c.SaveRecording(path); err != nil {
		t.Fatalf("SaveRecording: %v", err)
	}
	if n := h.ui.lastNote(); n.title != "Recording Saved" || !strings.Contains(n.msg, path) {
		t.Errorf("note = %+v", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("saved file: %v", err)
	}

	h.c.SelectModel("base")
	if err := h.c.TranscribeRecording(); err != nil {
		t.Fatalf("TranscribeRecording: %v", err)
	}
	h.finish(t)
	if h.c.Text() != "recorded speech" {
		t.Errorf("text = %q", h.c.Text())
	}
}

func TestSaveRecordingWithoutRecording(t *testing.T) {
	h := newHarness(t)
	if err := h.c.SaveRecording(filepath.Join(t.TempDir(), "x.wav")); !errors.Is(err, ErrNoRecording) {
		t.Errorf("err = %v, want ErrNoRecording", err)
	}
}

func TestLoopRunsPostedFunctions(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ticks := make(chan struct{}, 10)
	stop := l.Scheduler().Every(time.Millisecond, func() { ticks <- struct{}{} })
	<-ticks
	stop()

	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("posted function never ran")
	}
	l.Quit()
	<-l.Closed()
}

// pump runs posted functions until cond holds.
func (h *harness) pump(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		h.sched.RunPending()
		time.Sleep(time.Millisecond)
	}
}

func TestHotkeyRecordsAndTranscribes(t *testing.T) {
	h := newHarness(t, "from the hotkey")
	h.c.SelectModel("base")
	pcm := audio.Int16ToPCM16(make([]int16, 1600))
	h.audio.Blocks = [][]byte{pcm}

	hk := hotkey.NewFake()
	stop := h.c.WatchHotkey(hk, 2*time.Second)
	defer stop()

	// Short tap starts a toggle recording.
	hk.SimKeydown()
	h.pump(t, h.c.Recording)
	hk.SimKeyup()
	<-h.audio.Captures()[0].Fed()

	// Second tap stops it and starts a job on the recording.
	hk.SimKeydown()
	hk.SimKeyup()
	h.pump(t, func() bool { return h.c.Job() != nil })
	if h.c.Recording() {
		t.Error("still recording after the second tap")
	}
	h.finish(t)
	if h.c.Text() != "from the hotkey" {
		t.Errorf("text = %q", h.c.Text())
	}
}
