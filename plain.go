package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"wisp/app"
	"wisp/audio"
	"wisp/job"
)

// plainUI writes notifications and a single rewritten progress line to
// stderr. It runs on the app.Loop goroutine.
type plainUI struct {
	w          io.Writer
	shown      bool
	cancelling bool
}

func (u *plainUI) SetText(string) {}

func (u *plainUI) Progress(s job.Snapshot) bool {
	fmt.Fprintf(u.w, "\rtranscribing %3.0f%% (%.0fs)", s.Progress, s.Elapsed.Seconds())
	u.shown = true
	return !u.cancelling
}

func (u *plainUI) HideProgress() {
	if u.shown {
		fmt.Fprintln(u.w)
	}
	u.shown = false
	u.cancelling = false
}

func (u *plainUI) Notify(level app.Level, title, msg string) {
	if u.shown {
		fmt.Fprintln(u.w)
		u.shown = false
	}
	fmt.Fprintf(u.w, "[%s] %s: %s\n", level, title, msg)
}

// plainDriver executes line commands against a Controller running on an
// app.Loop. Commands:
//
//	OPEN <path>  RECORD  STOP  TRANSCRIBE  WAIT  WAIT_AUDIO_DONE
//	SAVE <path>  WAV <path>  COPY  MODEL <size>  ENGINE <name>
//	CHUNKED on|off  CANCEL  SLEEP <ms>  QUIT
type plainDriver struct {
	loop *app.Loop
	ctl  *app.Controller
	ui   *plainUI
	fake *audio.FakeContext // non-nil in -test mode
	out  io.Writer
	errw io.Writer

	outcomes chan job.Outcome
	started  int
	finished int

	mu      sync.Mutex
	lastErr error
}

func newPlainDriver(out, errw io.Writer) *plainDriver {
	d := &plainDriver{
		loop:     app.NewLoop(),
		ui:       &plainUI{w: errw},
		out:      out,
		errw:     errw,
		outcomes: make(chan job.Outcome, 16),
	}
	return d
}

// onFinish is installed as app.Options.OnFinish.
func (d *plainDriver) onFinish(o job.Outcome) {
	switch {
	case o.Cancelled:
		fmt.Fprintln(d.errw, "cancelled")
	case o.Err == nil:
		fmt.Fprintln(d.out, strings.TrimSpace(o.Text))
	}
	d.mu.Lock()
	d.lastErr = o.Err
	d.mu.Unlock()
	d.outcomes <- o
}

// call runs fn on the loop and waits for its result.
func (d *plainDriver) call(fn func() error) error {
	res := make(chan error, 1)
	d.loop.Post(func() { res <- fn() })
	return <-res
}

func (d *plainDriver) startJob(fn func() error) error {
	d.drain()
	err := d.call(fn)
	if err == nil {
		d.started++
	}
	return err
}

// drain consumes outcomes that arrived without a WAIT.
func (d *plainDriver) drain() {
	for d.finished < d.started {
		select {
		case <-d.outcomes:
			d.finished++
		default:
			return
		}
	}
}

func (d *plainDriver) wait() {
	for d.finished < d.started {
		<-d.outcomes
		d.finished++
	}
}

var errQuit = errors.New("quit")

func (d *plainDriver) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToUpper(cmd) {
	case "OPEN":
		return d.startJob(func() error { return d.ctl.TranscribeFile(arg) })
	case "TRANSCRIBE":
		return d.startJob(d.ctl.TranscribeRecording)
	case "RECORD":
		return d.call(func() error { return d.ctl.StartRecording() })
	case "STOP":
		return d.call(func() error {
			w, err := d.ctl.StopRecording()
			if err == nil {
				fmt.Fprintf(d.errw, "recorded %.1fs\n", w.Duration().Seconds())
			}
			return err
		})
	case "WAIT":
		d.wait()
	case "WAIT_AUDIO_DONE":
		if d.fake == nil {
			return errors.New("WAIT_AUDIO_DONE needs -test")
		}
		if caps := d.fake.Captures(); len(caps) > 0 {
			<-caps[len(caps)-1].Fed()
		}
	case "SAVE":
		return d.call(func() error { return d.ctl.SaveText(arg) })
	case "WAV":
		return d.call(func() error { return d.ctl.SaveRecording(arg) })
	case "COPY":
		return d.call(d.ctl.CopyText)
	case "MODEL":
		return d.call(func() error { return d.ctl.SelectModel(arg) })
	case "ENGINE":
		return d.call(func() error { return d.ctl.SetEngine(arg) })
	case "CHUNKED":
		on, err := strconv.ParseBool(strings.NewReplacer("on", "true", "off", "false").Replace(strings.ToLower(arg)))
		if err != nil {
			return fmt.Errorf("CHUNKED wants on or off, got %q", arg)
		}
		return d.call(func() error { d.ctl.SetChunked(on); return nil })
	case "CANCEL":
		return d.call(func() error { d.ui.cancelling = d.ctl.Busy(); return nil })
	case "SLEEP":
		ms, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("SLEEP wants milliseconds, got %q", arg)
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	case "QUIT":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// run executes script, then commands read from r until EOF or QUIT. A nil r
// runs only the script. Errors from a script line abort; errors from
// interactive lines are printed and skipped.
func (d *plainDriver) run(script []string, r io.Reader) error {
	for _, line := range script {
		if err := d.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			d.wait()
			return err
		}
	}
	if r != nil {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			err := d.exec(scanner.Text())
			if errors.Is(err, errQuit) {
				break
			}
			if err != nil {
				fmt.Fprintf(d.errw, "error: %v\n", err)
			}
		}
	}
	d.wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// plainScript builds the command lists for the one-shot flags. head runs
// first; when recording, the caller waits for the user before running tail.
func plainScript(transcribe string, record bool, wav, output string, copyText bool) (head, tail []string) {
	if record {
		head = append(head, "RECORD")
		tail = append(tail, "STOP")
		if wav != "" {
			tail = append(tail, "WAV "+wav)
		}
		tail = append(tail, "TRANSCRIBE", "WAIT")
	} else if transcribe != "" {
		head = append(head, "OPEN "+transcribe, "WAIT")
	}
	if output != "" {
		tail = append(tail, "SAVE "+output)
	}
	if copyText {
		tail = append(tail, "COPY")
	}
	return head, tail
}
