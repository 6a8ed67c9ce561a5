package job

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wisp/transcriber"
)

func TestRunnerWholeFile(t *testing.T) {
	eng := transcriber.NewFake("hello world")
	r := NewRunner(transcriber.FakeLoader(eng, nil))

	h, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(3)))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.ID == "" {
		t.Error("empty job ID")
	}
	h.Wait()

	if !h.Done() {
		t.Error("job not done after worker exit")
	}
	evs := drain(h)
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if evs[0].Kind != Final || evs[0].Text != "hello world" || evs[0].Progress != 100 {
		t.Errorf("event = %+v", evs[0])
	}
	if !eng.Closed() {
		t.Error("engine not closed")
	}
	if r.Active() != nil {
		t.Error("runner slot not released")
	}
}

func TestRunnerRejectsSecondJob(t *testing.T) {
	eng := transcriber.NewFake("a")
	eng.Gate = make(chan struct{})
	r := NewRunner(transcriber.FakeLoader(eng, nil))

	h, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1))); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("second Start err = %v, want ErrJobRunning", err)
	}

	// A cancelled job still holds the slot until its worker exits.
	h.Cancel()
	if _, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1))); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("Start after cancel err = %v, want ErrJobRunning", err)
	}

	close(eng.Gate)
	h.Wait()

	h2, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1)))
	if err != nil {
		t.Fatalf("Start after exit: %v", err)
	}
	h2.Wait()
	if h2.ID == h.ID {
		t.Error("job IDs repeat")
	}
}

func TestRunnerLoadError(t *testing.T) {
	r := NewRunner(transcriber.FakeLoader(nil, errors.New("model file missing")))
	h, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1)))
	if err != nil {
		t.Fatal(err)
	}
	h.Wait()

	evs := drain(h)
	if len(evs) != 1 || evs[0].Kind != Error {
		t.Fatalf("events = %+v, want one Error", evs)
	}
	var mle *transcriber.ModelLoadError
	if !errors.As(evs[0].Err, &mle) {
		t.Errorf("err = %v, want *ModelLoadError", evs[0].Err)
	}
}

func TestRunnerWrapsPlainLoadError(t *testing.T) {
	load := func(context.Context, transcriber.Model) (transcriber.Engine, error) {
		return nil, errors.New("boom")
	}
	h, _ := NewRunner(load).Start(testModel, NewWholeFile(), SamplesInput(samples(1)))
	h.Wait()
	evs := drain(h)
	var mle *transcriber.ModelLoadError
	if len(evs) != 1 || !errors.As(evs[0].Err, &mle) {
		t.Errorf("events = %+v, want one *ModelLoadError", evs)
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	eng := transcriber.NewFake("x")
	eng.PanicAt = 1
	h, _ := NewRunner(transcriber.FakeLoader(eng, nil)).Start(testModel, NewWholeFile(), SamplesInput(samples(1)))
	h.Wait()

	evs := drain(h)
	if len(evs) != 1 || evs[0].Kind != Error {
		t.Fatalf("events = %+v, want one Error", evs)
	}
	if !strings.Contains(evs[0].Err.Error(), "panic") {
		t.Errorf("err = %v", evs[0].Err)
	}
	if !eng.Closed() {
		t.Error("engine not closed after panic")
	}
}

func TestRunnerCancelDuringLoad(t *testing.T) {
	eng := transcriber.NewFake("never")
	loading := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context, transcriber.Model) (transcriber.Engine, error) {
		close(loading)
		<-release
		return eng, nil
	}

	h, _ := NewRunner(load).Start(testModel, testChunked(), SamplesInput(samples(3)))
	<-loading
	h.Cancel()
	close(release)
	h.Wait()

	if evs := drain(h); len(evs) != 0 {
		t.Errorf("events after cancel = %+v", evs)
	}
	if eng.Calls() != 0 {
		t.Errorf("engine called %d times after cancel", eng.Calls())
	}
}

func TestRunnerCancelDuringDecode(t *testing.T) {
	eng := transcriber.NewFake("late")
	eng.Gate = make(chan struct{})
	h, _ := NewRunner(transcriber.FakeLoader(eng, nil)).Start(testModel, NewWholeFile(), SamplesInput(samples(1)))

	h.Cancel()
	close(eng.Gate)
	h.Wait()

	if evs := drain(h); len(evs) != 0 {
		t.Errorf("events after cancel = %+v", evs)
	}
}

func TestRunnerCloseCancelsEngineContext(t *testing.T) {
	eng := transcriber.NewFake("x")
	eng.Gate = make(chan struct{})
	r := NewRunner(transcriber.FakeLoader(eng, nil))
	h, _ := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1)))

	r.Close()
	h.Wait()

	if !h.Cancelled() {
		t.Error("Close did not cancel the active job")
	}
	if evs := drain(h); len(evs) != 0 {
		t.Errorf("events after Close = %+v", evs)
	}
	if _, err := r.Start(testModel, NewWholeFile(), SamplesInput(samples(1))); err == nil {
		t.Error("Start after Close succeeded")
	}
}
