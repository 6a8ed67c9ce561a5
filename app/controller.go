package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"wisp/audio"
	"wisp/beep"
	"wisp/config"
	"wisp/job"
	"wisp/log"
	"wisp/recorder"
	"wisp/transcriber"
)

var (
	ErrNoModelSelected  = errors.New("no model selected")
	ErrFileNotFound     = errors.New("file not found")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNoRecording      = errors.New("no recording to save")
	ErrNoText           = errors.New("no transcription yet")
)

type Options struct {
	Loader   transcriber.Loader
	Sched    job.Scheduler
	UI       UI
	Store    config.Store
	Settings config.Settings

	Audio  audio.Context     // capture source; recording is unavailable when nil
	Device *audio.DeviceInfo // nil selects the system default

	// Clipboard defaults to a no-op that reports unsupported.
	Clipboard func(string) error

	// OnFinish runs on the UI thread after every job outcome has been shown.
	OnFinish func(job.Outcome)
}

// Controller owns the state shared by the front ends. Every method must be
// called on the UI thread.
type Controller struct {
	opts     Options
	settings config.Settings
	runner   *job.Runner

	text      string
	count     int
	handle    *job.Handle
	poller    *job.Poller
	capture   audio.CaptureDevice
	session   *recorder.Session
	recording *recorder.Waveform
}

func New(opts Options) *Controller {
	if opts.Clipboard == nil {
		opts.Clipboard = func(string) error { return errors.New("clipboard unavailable") }
	}
	return &Controller{
		opts:     opts,
		settings: opts.Settings.Normalize(),
		runner:   job.NewRunner(opts.Loader),
	}
}

func (c *Controller) Settings() config.Settings { return c.settings }

func (c *Controller) save() {
	if c.opts.Store == nil {
		return
	}
	if err := c.opts.Store.Save(c.settings); err != nil {
		log.Warnf("save settings: %v", err)
	}
}

// Model returns the selected model. ok is false until a size is chosen.
func (c *Controller) Model() (m transcriber.Model, ok bool) {
	if c.settings.Model == "" {
		return m, false
	}
	return transcriber.Model{
		Variant: transcriber.Variant(c.settings.Engine),
		Size:    transcriber.Size(c.settings.Model),
	}, true
}

func (c *Controller) SelectModel(size string) error {
	s, err := transcriber.ParseSize(size)
	if err != nil {
		return err
	}
	c.settings.Model = string(s)
	c.save()
	log.Infof("model selected: %s", s)
	return nil
}

func (c *Controller) SetEngine(name string) error {
	v, err := transcriber.ParseVariant(name)
	if err != nil {
		return err
	}
	c.settings.Engine = string(v)
	c.save()
	log.Infof("engine selected: %s", v)
	return nil
}

func (c *Controller) SetChunked(on bool) {
	c.settings.Chunked = on
	c.save()
}

// RequireModel notifies the user and fails when no model is selected.
func (c *Controller) RequireModel() error {
	if _, ok := c.Model(); ok {
		return nil
	}
	c.opts.UI.Notify(Failure, "No Model Selected", "Please select a model before opening a file.")
	return ErrNoModelSelected
}

func (c *Controller) Text() string { return c.text }

// Count is the number of jobs that finished with text.
func (c *Controller) Count() int { return c.count }

// Busy reports whether a job is being shown or its worker is still alive.
func (c *Controller) Busy() bool {
	return (c.poller != nil && !c.poller.Finished()) || c.runner.Active() != nil
}

// TranscribeFile validates path and starts a job on it.
func (c *Controller) TranscribeFile(path string) error {
	m, ok := c.Model()
	if !ok {
		c.opts.UI.Notify(Failure, "No Model Selected", "Please select a model before transcribing.")
		return ErrNoModelSelected
	}
	if _, err := os.Stat(path); err != nil {
		c.opts.UI.Notify(Failure, "File Not Found", fmt.Sprintf("The file '%s' does not exist.", path))
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	log.Infof("selected file: %s", path)
	return c.start(m, job.FileInput(path))
}

// TranscribeRecording transcribes the last stopped recording from memory.
func (c *Controller) TranscribeRecording() error {
	m, ok := c.Model()
	if !ok {
		c.opts.UI.Notify(Failure, "No Model Selected", "Please select a model before transcribing.")
		return ErrNoModelSelected
	}
	if c.recording == nil {
		c.opts.UI.Notify(Warning, "No Recording", "Record something first.")
		return ErrNoRecording
	}
	return c.start(m, job.SamplesInput(c.recording.Samples()))
}

func (c *Controller) strategy() job.Strategy {
	if c.settings.Chunked {
		return job.NewChunked(c.settings.ChunkWindow(), audio.SampleRate)
	}
	return job.NewWholeFile()
}

func (c *Controller) start(m transcriber.Model, in job.Input) error {
	if c.poller != nil && !c.poller.Finished() {
		c.opts.UI.Notify(Warning, "Busy", "A transcription is already running.")
		return job.ErrJobRunning
	}
	h, err := c.runner.Start(m, c.strategy(), in)
	if err != nil {
		if errors.Is(err, job.ErrJobRunning) {
			c.opts.UI.Notify(Warning, "Busy", "The previous transcription is still stopping. Try again in a moment.")
		}
		return err
	}

	c.text = ""
	c.opts.UI.SetText("")
	c.handle = h
	c.poller = job.NewPoller(h, c.opts.Sched, &jobView{c: c}, job.PollerConfig{
		Interval:        c.settings.PollInterval(),
		AssumedDuration: c.settings.AssumedDuration(),
	})
	c.poller.Start()
	return nil
}

// Cancel requests cancellation of the running job, if any.
func (c *Controller) Cancel() {
	if c.handle != nil && c.poller != nil && !c.poller.Finished() {
		log.Info("user cancelled transcription")
		c.handle.Cancel()
	}
}

// Job returns the handle of the most recent job.
func (c *Controller) Job() *job.Handle { return c.handle }

// SaveText writes the current transcription as UTF-8.
func (c *Controller) SaveText(path string) error {
	if err := os.WriteFile(path, []byte(c.text), 0o644); err != nil {
		c.opts.UI.Notify(Failure, "Save Failed", err.Error())
		return fmt.Errorf("save transcription: %w", err)
	}
	log.Infof("transcription saved: %s", path)
	return nil
}

func (c *Controller) CopyText() error {
	if strings.TrimSpace(c.text) == "" {
		return ErrNoText
	}
	if err := c.opts.Clipboard(c.text); err != nil {
		c.opts.UI.Notify(Warning, "Copy Failed", err.Error())
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

func (c *Controller) Recording() bool { return c.session != nil }

func (c *Controller) captureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate: uint32(c.settings.SampleRate),
		Channels:   uint32(c.settings.Channels),
	}
}

// StartRecording opens the capture device and starts a recording session.
func (c *Controller) StartRecording(opts ...recorder.Option) error {
	if c.session != nil {
		return ErrAlreadyRecording
	}
	if c.opts.Audio == nil {
		c.opts.UI.Notify(Failure, "Recording", "No audio input is available.")
		return errors.New("no audio context")
	}
	cfg := c.captureConfig()
	dev, err := c.opts.Audio.NewCapture(c.opts.Device, cfg)
	if err != nil {
		c.opts.UI.Notify(Failure, "Recording", err.Error())
		beep.PlayError()
		return fmt.Errorf("open capture: %w", err)
	}
	s, err := recorder.Start(dev, cfg, opts...)
	if err != nil {
		dev.Close()
		c.opts.UI.Notify(Failure, "Recording", err.Error())
		beep.PlayError()
		return err
	}
	c.capture = dev
	c.session = s
	beep.PlayStart()
	log.Infof("recording started on %s (%d Hz x %d)", dev.DeviceName(), cfg.SampleRate, cfg.Channels)
	c.opts.UI.Notify(Info, "Recording", "Recording started. Use 'Stop Recording' to finish.")
	return nil
}

// StopRecording ends the session and keeps the waveform for saving or
// transcription.
func (c *Controller) StopRecording() (recorder.Waveform, error) {
	if c.session == nil {
		return recorder.Waveform{}, ErrNotRecording
	}
	w, err := c.session.Stop()
	c.capture.Close()
	c.session, c.capture = nil, nil
	if err != nil {
		return w, err
	}
	beep.PlayEnd()
	c.recording = &w
	log.Infof("recording stopped: %.1fs", w.Duration().Seconds())
	return w, nil
}

func (c *Controller) HasRecording() bool { return c.recording != nil }

// SaveRecording writes the last recording as WAV.
func (c *Controller) SaveRecording(path string) error {
	if c.recording == nil {
		return ErrNoRecording
	}
	if err := c.recording.Save(path); err != nil {
		c.opts.UI.Notify(Failure, "Save Failed", err.Error())
		return fmt.Errorf("save recording: %w", err)
	}
	c.opts.UI.Notify(Info, "Recording Saved", "Recording saved as "+path)
	return nil
}

// Close cancels any job and stops any recording.
func (c *Controller) Close() {
	if c.session != nil {
		c.StopRecording()
	}
	c.runner.Close()
}

func (c *Controller) finish(o job.Outcome) {
	c.opts.UI.HideProgress()
	switch {
	case o.Cancelled:
		log.Info("transcription cancelled")
	case o.Err != nil:
		log.Errorf("transcription failed: %v", o.Err)
		beep.PlayError()
		c.opts.UI.Notify(Failure, "Error", "Transcription failed. Please try again.\n\n"+o.Err.Error())
	default:
		c.text = o.Text
		c.count++
		c.opts.UI.SetText(c.text)
		log.TranscriptionText(c.text)
		beep.PlayEnd()
	}
	if c.opts.OnFinish != nil {
		c.opts.OnFinish(o)
	}
}

// jobView connects a poller to the controller's UI.
type jobView struct {
	c *Controller
}

func (v *jobView) Update(s job.Snapshot) bool {
	if s.Text != v.c.text {
		v.c.text = s.Text
		v.c.opts.UI.SetText(s.Text)
	}
	return v.c.opts.UI.Progress(s)
}

func (v *jobView) Finish(o job.Outcome) {
	v.c.finish(o)
}
