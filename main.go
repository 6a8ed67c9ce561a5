package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"wisp/app"
	"wisp/audio"
	"wisp/beep"
	"wisp/clipboard"
	"wisp/config"
	"wisp/doctor"
	"wisp/hotkey"
	"wisp/job"
	"wisp/log"
	"wisp/paste"
	"wisp/recorder"
	"wisp/shutdown"
	"wisp/transcriber"
)

var version = "dev"

// pasteDelay gives the clipboard owner time to publish before the keystroke.
const pasteDelay = 80 * time.Millisecond

type flags struct {
	engine     string
	model      string
	chunked    bool
	chunk      int
	modelDir   string
	whisperBin string
	outDir     string
	poll       int
	assume     int
	device     string
	setup      bool
	quiet      bool

	transcribe string
	record     bool
	wav        string
	output     string
	copyText   bool

	plain  bool
	gui    bool
	doctor bool
	test   string

	hotkey    bool
	longPress time.Duration
	paste     bool

	configPath string
	logPath    string
	profile    string
	crash      bool
	version    bool
}

func parseFlags(args []string, errw io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("wisp", flag.ContinueOnError)
	fs.SetOutput(errw)

	fs.StringVar(&f.engine, "engine", "", "Transcription engine: whispercpp, openai or groq")
	fs.StringVar(&f.model, "model", "", "Model size: base, small or large")
	fs.BoolVar(&f.chunked, "chunked", false, "Transcribe in windows and show partial text")
	fs.IntVar(&f.chunk, "chunk", 0, "Chunk window in seconds")
	fs.StringVar(&f.modelDir, "models", "", "Directory holding ggml-<size>.bin whisper.cpp models")
	fs.StringVar(&f.whisperBin, "whisper", "", "whisper.cpp binary (default: whisper-cli on PATH)")
	fs.StringVar(&f.outDir, "outdir", "", "Default directory for save dialogs")
	fs.IntVar(&f.poll, "poll", 0, "Progress poll interval in milliseconds")
	fs.IntVar(&f.assume, "assume", 0, "Assumed job length in seconds until an estimate exists")
	fs.StringVar(&f.device, "device", "", "Use the capture device whose name contains this text")
	fs.BoolVar(&f.setup, "setup", false, "Pick the microphone interactively and remember it")
	fs.BoolVar(&f.quiet, "quiet", false, "Disable start/stop beeps")

	fs.StringVar(&f.transcribe, "transcribe", "", "Transcribe an audio file, print the text and exit")
	fs.BoolVar(&f.record, "record", false, "Record until Enter, transcribe, print the text and exit")
	fs.StringVar(&f.wav, "wav", "", "With -record, also save the recording to this WAV file")
	fs.StringVar(&f.output, "o", "", "Save the transcription to this file")
	fs.BoolVar(&f.copyText, "copy", false, "Copy the transcription to the clipboard")

	fs.BoolVar(&f.plain, "plain", false, "Line-oriented mode reading commands from stdin")
	fs.BoolVar(&f.gui, "gui", false, "Run the desktop window (needs a build with -tags gui)")
	fs.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit; an optional argument is transcribed as a smoke test")
	fs.StringVar(&f.test, "test", "", "Test mode: WAV file replayed as the microphone, scripted engine, stdin commands")

	fs.BoolVar(&f.hotkey, "hotkey", false, "Record with the global shortcut ("+hotkey.Combo+"): hold to talk or tap twice")
	fs.DurationVar(&f.longPress, "longpress", 350*time.Millisecond, "Hold threshold separating push-to-talk from a tap")
	fs.BoolVar(&f.paste, "paste", false, "Paste each finished transcription into the focused window")

	fs.StringVar(&f.configPath, "config", config.DefaultPath(), "Settings file")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&f.profile, "profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	fs.BoolVar(&f.crash, "crash", false, "Trigger synthetic panic for testing crash logging")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// apply overlays the flags given on the command line onto s.
func (f *flags) apply(fs *flag.FlagSet, s config.Settings) config.Settings {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "engine":
			s.Engine = f.engine
		case "model":
			s.Model = f.model
		case "chunked":
			s.Chunked = f.chunked
		case "chunk":
			s.ChunkSeconds = f.chunk
		case "models":
			s.ModelDir = f.modelDir
		case "whisper":
			s.WhisperBin = f.whisperBin
		case "outdir":
			s.OutputDir = f.outDir
		case "poll":
			s.PollIntervalMs = f.poll
		case "assume":
			s.AssumedSeconds = f.assume
		case "device":
			s.Device = f.device
		case "quiet":
			s.Beeps = !f.quiet
		}
	})
	return s.Normalize()
}

// oneShot reports whether the flags describe a scripted run rather than an
// interactive session.
func (f *flags) oneShot() bool {
	return f.transcribe != "" || f.record
}

func run(args []string) int {
	f, fs, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if f.version {
		fmt.Printf("wisp %s\n", version)
		return 0
	}

	setupLogDir(f.logPath)

	if f.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", f.profile)
			if err := http.ListenAndServe(f.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if f.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	e, err := bootstrap(f, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.close()

	if f.doctor {
		return doctor.Run(doctor.Config{
			Settings:      e.settings,
			Keys:          e.keys,
			Audio:         e.audio,
			Device:        e.device,
			Loader:        e.loader,
			SmokeFile:     fs.Arg(0),
			Clipboard:     clipboard.Copy,
			ReadClipboard: clipboard.Read,
		}, os.Stdout)
	}

	switch {
	case f.gui:
		err = runGUI(e)
	case f.plain || f.test != "" || f.oneShot():
		err = runPlain(e, os.Stdin, os.Stdout, os.Stderr)
	default:
		err = runTUI(e)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func setupLogDir(flagPath string) {
	logPath, err := log.ResolveDir(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve log directory: %v\n", err)
		return
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}
}

// env is everything the front ends share.
type env struct {
	f        *flags
	settings config.Settings
	store    config.Store
	keys     config.APIKeys
	loader   transcriber.Loader
	audio    audio.Context      // nil when no audio backend is available
	fake     *audio.FakeContext // set in -test mode
	device   *audio.DeviceInfo
	pasting  bool
}

func bootstrap(f *flags, fs *flag.FlagSet) (*env, error) {
	if err := config.LoadEnv(); err != nil {
		log.Warnf("env: %v", err)
	}
	e := &env{f: f, keys: config.Keys()}

	store := config.NewJSONStore(f.configPath)
	settings, err := store.Load()
	if err != nil {
		log.Warnf("settings: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		settings = config.DefaultSettings()
	}
	settings = f.apply(fs, settings)
	e.store = store

	if f.test != "" {
		fake, err := audio.NewFakeContextFromFile(f.test, 100*time.Millisecond)
		if err != nil {
			return nil, err
		}
		settings.SampleRate, settings.Channels = audio.SampleRate, 1
		settings.Beeps = false
		if settings.Model == "" {
			settings.Model = string(transcriber.Base)
		}
		e.store = &config.MemoryStore{Settings: settings}
		e.loader = transcriber.FakeLoader(transcriber.NewFake("testing one two three"), nil)
		e.audio, e.fake = fake, fake
	} else {
		e.loader = transcriber.NewLoader(transcriber.LoaderConfig{
			ModelDir:   settings.ModelDir,
			WhisperBin: settings.WhisperBin,
			OpenAIKey:  e.keys.OpenAI,
			GroqKey:    e.keys.Groq,
		})
		if ctx, err := audio.NewContext(); err != nil {
			log.Warnf("audio context init error: %v", err)
		} else {
			e.audio = ctx
		}
	}
	beep.SetEnabled(settings.Beeps)

	if e.audio != nil {
		switch {
		case f.setup:
			dev, err := audio.SelectDevice(e.audio)
			switch {
			case errors.Is(err, audio.ErrSelectionCancelled):
			case err != nil:
				fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\nFalling back to default device\n", err)
				log.Warnf("device selection failed: %v", err)
			default:
				e.device = dev
				settings.Device = dev.Name
				if err := e.store.Save(settings); err != nil {
					log.Warnf("save settings: %v", err)
				}
			}
		case settings.Device != "" && e.fake == nil:
			dev, err := audio.FindDevice(e.audio, settings.Device)
			if err != nil {
				log.Warnf("%v; using system default", err)
			}
			e.device = dev
		}
	}

	if f.paste {
		if err := paste.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
		} else {
			e.pasting = true
		}
	}

	e.settings = settings
	return e, nil
}

func (e *env) close() {
	if e.audio != nil {
		e.audio.Close()
	}
}

// controller builds the Controller for a front end. onFinish may be nil.
func (e *env) controller(ui app.UI, sched job.Scheduler, onFinish func(job.Outcome)) *app.Controller {
	return app.New(app.Options{
		Loader:    e.loader,
		Sched:     sched,
		UI:        ui,
		Store:     e.store,
		Settings:  e.settings,
		Audio:     e.audio,
		Device:    e.device,
		Clipboard: clipboard.Copy,
		OnFinish: func(o job.Outcome) {
			if onFinish != nil {
				onFinish(o)
			}
			if e.pasting {
				autoPaste(o)
			}
		},
	})
}

// watchHotkey registers the global shortcut when -hotkey is set. The returned
// function releases it.
func (e *env) watchHotkey(ctl *app.Controller, opts ...recorder.Option) func() {
	if !e.f.hotkey {
		return func() {}
	}
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: hotkey unavailable: %v\n", err)
		return func() {}
	}
	log.Infof("hotkey registered: %s", hotkey.Combo)
	stop := ctl.WatchHotkey(hk, e.f.longPress, opts...)
	return func() {
		stop()
		hk.Unregister()
	}
}

func autoPaste(o job.Outcome) {
	text := strings.TrimSpace(o.Text)
	if o.Err != nil || o.Cancelled || text == "" {
		return
	}
	go func() {
		if err := clipboard.Copy(text); err != nil {
			log.Warnf("paste: %v", err)
			return
		}
		time.Sleep(pasteDelay)
		if err := paste.Send(); err != nil {
			log.Warnf("paste: %v", err)
		}
	}()
}

func frontendModel(ctl *app.Controller) string {
	if m, ok := ctl.Model(); ok {
		return string(m.Size)
	}
	return "none"
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func runTUI(e *env) error {
	ui := &tuiUI{}
	ctl := e.controller(ui, tuiScheduler(), nil)
	p := NewTUIProgram(ui, ctl, deviceLineText(e.device))
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	stopHotkey := e.watchHotkey(ctl, recorder.WithLevel(ui.setLevel))
	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		p.Quit()
	}()

	log.SessionStart("tui", ctl.Settings().Engine, frontendModel(ctl))
	_, err := p.Run()
	stopHotkey()
	ctl.Close()
	log.SessionEnd(ctl.Count())
	if err != nil {
		log.Errorf("TUI error: %v", err)
	}
	return err
}

func runPlain(e *env, in io.Reader, out, errw io.Writer) error {
	d := newPlainDriver(out, errw)
	d.fake = e.fake
	d.ctl = e.controller(d.ui, d.loop.Scheduler(), d.onFinish)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.loop.Run(ctx)

	stopHotkey := e.watchHotkey(d.ctl)
	defer stopHotkey()

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		for range sig {
			d.loop.Post(func() {
				if d.ctl.Busy() {
					d.ctl.Cancel()
					return
				}
				log.Close()
				os.Exit(130)
			})
		}
	}()

	log.SessionStart("plain", e.settings.Engine, frontendModel(d.ctl))
	head, tail := plainScript(e.f.transcribe, e.f.record, e.f.wav, e.f.output, e.f.copyText)
	var err error
	switch {
	case e.f.record:
		if err = d.run(head, nil); err != nil {
			break
		}
		fmt.Fprintln(errw, "recording, press Enter to stop")
		bufio.NewReader(in).ReadString('\n')
		err = d.run(tail, nil)
	case e.f.oneShot():
		err = d.run(append(head, tail...), nil)
	default:
		err = d.run(nil, in)
	}

	d.call(func() error {
		d.ctl.Close()
		log.SessionEnd(d.ctl.Count())
		return nil
	})
	d.loop.Quit()
	return err
}
