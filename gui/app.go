//go:build gui

// Package gui is the fyne desktop front end.
package gui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"wisp/app"
	"wisp/audio"
	"wisp/job"
	"wisp/log"
	"wisp/recorder"
	"wisp/transcriber"
)

// App implements app.UI on a fyne window. Every method runs on the fyne
// main goroutine.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	ctl     *app.Controller
	sched   job.Scheduler

	text     *widget.Entry
	status   *widget.Label
	recLabel *widget.Label
	recBtn   *widget.Button
	meter    *LevelMeter
	engine   *widget.Select
	chunked  *widget.Check
	models   *fyne.Menu

	progress *progressDialog
	stopSync func()
	recStart time.Time
}

func New() *App {
	a := &App{fyneApp: fyneapp.NewWithID("io.wisp.gui")}
	a.fyneApp.Settings().SetTheme(&darkTheme{})
	a.sched = job.NewTickerScheduler(fyne.Do)
	return a
}

// Scheduler posts onto the fyne main goroutine.
func (a *App) Scheduler() job.Scheduler { return a.sched }

// Bind builds the window around ctl. It must be called once before Run.
func (a *App) Bind(ctl *app.Controller) {
	a.ctl = ctl
	a.window = a.fyneApp.NewWindow("wisp")

	a.text = widget.NewMultiLineEntry()
	a.text.Wrapping = fyne.TextWrapWord
	a.text.SetPlaceHolder("Open an audio file or record to transcribe.")

	a.status = widget.NewLabel("")
	a.status.Truncation = fyne.TextTruncateEllipsis
	a.recLabel = widget.NewLabel("")
	a.meter = NewLevelMeter()
	a.recBtn = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), a.toggleRecording)

	names := make([]string, len(transcriber.Variants))
	for i, v := range transcriber.Variants {
		names[i] = string(v)
	}
	a.engine = widget.NewSelect(names, func(s string) {
		if err := a.ctl.SetEngine(s); err != nil {
			a.Notify(app.Warning, "Engine", err.Error())
		}
		a.refreshModelMenu()
	})
	a.chunked = widget.NewCheck("Chunked", func(on bool) { a.ctl.SetChunked(on) })

	s := ctl.Settings()
	a.engine.SetSelected(s.Engine)
	a.chunked.SetChecked(s.Chunked)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), a.openFile),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.saveText),
		widget.NewToolbarAction(theme.ContentCopyIcon(), a.copyText),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MediaPlayIcon(), a.transcribeRecording),
	)
	top := container.NewHBox(toolbar, a.recBtn, widget.NewSeparator(), a.engine, a.chunked)
	bottom := container.NewBorder(nil, nil, container.NewHBox(a.recLabel, a.meter), nil, a.status)

	a.window.SetContent(container.NewBorder(top, bottom, nil, nil, a.text))
	a.window.SetMainMenu(a.mainMenu())
	a.window.Resize(fyne.NewSize(720, 480))

	a.setupTray()
	a.stopSync = a.sched.Every(100*time.Millisecond, a.sync)
}

// Run shows the window and blocks until the app quits.
func (a *App) Run() {
	a.window.ShowAndRun()
	if a.stopSync != nil {
		a.stopSync()
	}
}

// Quit may be called from any goroutine.
func (a *App) Quit() {
	fyne.Do(a.fyneApp.Quit)
}

// SetLevel feeds the level meter. It may be called from the audio thread.
func (a *App) SetLevel(l float64) {
	a.meter.SetLevel(l)
}

func (a *App) mainMenu() *fyne.MainMenu {
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Audio File...", a.openFile),
		fyne.NewMenuItem("Save Transcription...", a.saveText),
		fyne.NewMenuItem("Copy Transcription", a.copyText),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Start Recording", a.startRecording),
		fyne.NewMenuItem("Stop Recording", a.stopRecording),
		fyne.NewMenuItem("Transcribe Recording", a.transcribeRecording),
		fyne.NewMenuItem("Save Recording...", a.saveRecording),
	)

	a.models = fyne.NewMenu("Model")
	for _, size := range transcriber.Sizes {
		a.models.Items = append(a.models.Items, fyne.NewMenuItem(menuLabel(string(size)), func() {
			if err := a.ctl.SelectModel(string(size)); err != nil {
				a.Notify(app.Warning, "Model", err.Error())
			}
			a.refreshModelMenu()
		}))
	}
	a.refreshModelMenu()
	return fyne.NewMainMenu(file, a.models)
}

func menuLabel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *App) refreshModelMenu() {
	if a.models == nil {
		return
	}
	cur := a.ctl.Settings().Model
	for i, item := range a.models.Items {
		item.Checked = string(transcriber.Sizes[i]) == cur
	}
	a.models.Refresh()
	a.window.SetTitle("wisp - " + modelTitle(a.ctl))
}

func modelTitle(ctl *app.Controller) string {
	if m, ok := ctl.Model(); ok {
		return m.String()
	}
	return "no model"
}

func (a *App) setupTray() {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		return
	}
	menu := fyne.NewMenu("wisp",
		fyne.NewMenuItem("Show", func() { a.window.Show() }),
		fyne.NewMenuItem("Record / Stop", a.toggleRecording),
		fyne.NewMenuItem("Copy Transcription", a.copyText),
	)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(theme.MediaRecordIcon())
}

// sync mirrors recording state that can change outside the window, such as
// from the global hotkey.
func (a *App) sync() {
	rec := a.ctl.Recording()
	if rec {
		if a.recStart.IsZero() {
			a.recStart = time.Now()
			a.meter.SetActive(true)
			a.recBtn.SetText("Stop")
			a.recBtn.SetIcon(theme.MediaStopIcon())
		}
		a.recLabel.SetText(fmt.Sprintf("● REC %.1fs", time.Since(a.recStart).Seconds()))
	} else if !a.recStart.IsZero() {
		a.recStart = time.Time{}
		a.meter.SetActive(false)
		a.recBtn.SetText("Record")
		a.recBtn.SetIcon(theme.MediaRecordIcon())
		a.recLabel.SetText("")
	}
	a.meter.Refresh()
}

func (a *App) openFile() {
	if a.ctl.RequireModel() != nil {
		return
	}
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.Notify(app.Failure, "Open", err.Error())
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		a.ctl.TranscribeFile(path)
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter(audio.Extensions))
	a.setLocation(d)
	d.Show()
}

type locatable interface {
	SetLocation(fyne.ListableURI)
}

func (a *App) setLocation(d locatable) {
	dir := a.ctl.Settings().OutputDir
	if dir == "" {
		return
	}
	if l, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
		d.SetLocation(l)
	}
}

func (a *App) saveText() {
	if a.ctl.Text() == "" {
		a.Notify(app.Info, "Save Transcription", "Nothing to save yet.")
		return
	}
	a.saveAs("transcription.txt", []string{".txt"}, func(path string) {
		if a.ctl.SaveText(path) == nil {
			a.status.SetText("Transcription saved as " + path)
		}
	})
}

func (a *App) saveRecording() {
	if !a.ctl.HasRecording() {
		a.Notify(app.Info, "Save Recording", "Record something first.")
		return
	}
	a.saveAs("recording.wav", []string{".wav"}, func(path string) {
		a.ctl.SaveRecording(path)
	})
}

func (a *App) saveAs(name string, exts []string, save func(path string)) {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			a.Notify(app.Failure, "Save", err.Error())
			return
		}
		if w == nil {
			return
		}
		path := w.URI().Path()
		w.Close()
		if filepath.Ext(path) == "" {
			path += exts[0]
		}
		save(path)
	}, a.window)
	d.SetFileName(name)
	d.SetFilter(storage.NewExtensionFileFilter(exts))
	a.setLocation(d)
	d.Show()
}

func (a *App) copyText() {
	if err := a.ctl.CopyText(); err == nil {
		a.status.SetText("Copied to clipboard")
	}
}

func (a *App) toggleRecording() {
	if a.ctl.Recording() {
		a.stopRecording()
		return
	}
	a.startRecording()
}

func (a *App) startRecording() {
	if err := a.ctl.StartRecording(recorder.WithLevel(a.meter.SetLevel)); err != nil {
		log.Warnf("start recording: %v", err)
	}
	a.sync()
}

func (a *App) stopRecording() {
	w, err := a.ctl.StopRecording()
	a.sync()
	if err != nil {
		return
	}
	a.status.SetText(fmt.Sprintf("Recorded %.1fs. Save it or transcribe it.", w.Duration().Seconds()))
	a.saveRecording()
}

func (a *App) transcribeRecording() {
	a.ctl.TranscribeRecording()
}

// app.UI

func (a *App) SetText(text string) {
	a.text.SetText(text)
	// Keep the newest text in view.
	a.text.CursorRow = strings.Count(text, "\n")
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		a.text.CursorColumn = len([]rune(text[i+1:]))
	} else {
		a.text.CursorColumn = len([]rune(text))
	}
	a.text.Refresh()
}

func (a *App) Progress(s job.Snapshot) bool {
	if a.progress == nil {
		a.progress = newProgressDialog(a.window)
	}
	a.progress.update(s)
	return !a.progress.cancelled
}

func (a *App) HideProgress() {
	if a.progress != nil {
		a.progress.hide()
		a.progress = nil
	}
}

func (a *App) Notify(level app.Level, title, msg string) {
	a.status.SetText(title + ": " + strings.SplitN(msg, "\n", 2)[0])
	if level == app.Info && title == "Recording" {
		return
	}
	dialog.ShowInformation(title, msg, a.window)
}

// progressDialog is the modal shown while a job runs.
type progressDialog struct {
	d         dialog.Dialog
	label     *widget.Label
	bar       *widget.ProgressBar
	cancel    *widget.Button
	cancelled bool
}

func newProgressDialog(win fyne.Window) *progressDialog {
	p := &progressDialog{
		label: widget.NewLabel("Transcription in progress..."),
		bar:   widget.NewProgressBar(),
	}
	p.bar.Max = 100
	p.cancel = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), func() {
		p.cancelled = true
		p.cancel.SetText("Cancelling...")
		p.cancel.Disable()
	})
	content := container.NewVBox(p.label, p.bar, container.NewCenter(p.cancel))
	p.d = dialog.NewCustomWithoutButtons("Transcribing", content, win)
	p.d.Show()
	return p
}

func (p *progressDialog) update(s job.Snapshot) {
	p.bar.SetValue(s.Progress)
	p.label.SetText(fmt.Sprintf("Transcription in progress... %.0f%% (%.0fs elapsed)", s.Progress, s.Elapsed.Seconds()))
}

func (p *progressDialog) hide() {
	p.d.Hide()
}
