package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wisp/app"
	"wisp/job"
	"wisp/recorder"
	"wisp/transcriber"
)

// runMsg carries a function posted to the UI thread by a job.Scheduler.
type runMsg func()

type tickMsg time.Time

type tuiPrompt int

const (
	promptNone tuiPrompt = iota
	promptOpen
	promptSaveText
	promptSaveRecording
)

func (p tuiPrompt) String() string {
	switch p {
	case promptOpen:
		return "open audio file: "
	case promptSaveText:
		return "save transcription as: "
	case promptSaveRecording:
		return "save recording as: "
	}
	return ""
}

// tuiUI is the app.UI of the terminal front end. It is only touched from
// tuiModel.Update, which bubbletea runs on one goroutine.
type tuiUI struct {
	text       string
	progress   *job.Snapshot
	cancelling bool

	status      string
	statusLevel app.Level

	copied bool
	level  atomic.Uint64 // math.Float64bits of the latest capture RMS
}

func (u *tuiUI) SetText(text string) {
	u.text = text
	u.copied = false
}

func (u *tuiUI) Progress(s job.Snapshot) bool {
	u.progress = &s
	return !u.cancelling
}

func (u *tuiUI) HideProgress() {
	u.progress = nil
	u.cancelling = false
}

func (u *tuiUI) Notify(level app.Level, title, msg string) {
	u.status = title + ": " + strings.ReplaceAll(msg, "\n\n", " ")
	u.statusLevel = level
}

func (u *tuiUI) setLevel(v float64)  { u.level.Store(math.Float64bits(v)) }
func (u *tuiUI) audioLevel() float64 { return math.Float64frombits(u.level.Load()) }

type tuiModel struct {
	ui  *tuiUI
	ctl *app.Controller

	prompt tuiPrompt
	input  string

	frame         int
	recElapsed    time.Duration
	meter         float64
	peakLevel     float64
	width, height int
	deviceLine    string
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiScheduler() job.Scheduler {
	return job.NewTickerScheduler(func(fn func()) {
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Send(runMsg(fn))
		}
	})
}

func NewTUIProgram(ui *tuiUI, ctl *app.Controller, deviceLine string) *tea.Program {
	m := tuiModel{ui: ui, ctl: ctl, deviceLine: deviceLine}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case runMsg:
		msg()

	case tickMsg:
		m.frame++
		if m.ctl.Recording() {
			m.recElapsed += 60 * time.Millisecond
			level := m.ui.audioLevel()
			m.meter = m.meter*0.6 + level*0.4
			if level > m.peakLevel {
				m.peakLevel = level
			}
		}
		return m, tuiTick()

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg), nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m tuiModel) updatePrompt(msg tea.KeyMsg) tuiModel {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompt, m.input = promptNone, ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input)
		p := m.prompt
		m.prompt, m.input = promptNone, ""
		if path == "" {
			break
		}
		switch p {
		case promptOpen:
			m.ctl.TranscribeFile(path)
		case promptSaveText:
			if m.ctl.SaveText(path) == nil {
				m.ui.Notify(app.Info, "Saved", "Transcription saved as "+path)
			}
		case promptSaveRecording:
			m.ctl.SaveRecording(path)
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m
}

func (m tuiModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.ctl.Busy() {
			m.cancel()
			return m, nil
		}
		return m, tea.Quit
	case "q":
		if !m.ctl.Busy() && !m.ctl.Recording() {
			return m, tea.Quit
		}
	case "esc":
		m.cancel()
	case "o":
		if m.ctl.RequireModel() == nil {
			m.prompt = promptOpen
		}
	case "r":
		if m.ctl.Recording() {
			if _, err := m.ctl.StopRecording(); err == nil {
				m.ui.Notify(app.Info, "Recording", "Stopped. Press w to save or t to transcribe.")
			}
			m.ui.setLevel(0)
			m.meter = 0
			break
		}
		m.recElapsed, m.meter, m.peakLevel = 0, 0, 0
		m.ctl.StartRecording(recorder.WithLevel(m.ui.setLevel))
	case "t":
		m.ctl.TranscribeRecording()
	case "w":
		if m.ctl.HasRecording() {
			m.prompt = promptSaveRecording
			m.input = m.ctl.Settings().OutputDir + "/recording.wav"
		}
	case "s":
		if m.ctl.Text() != "" {
			m.prompt = promptSaveText
			m.input = m.ctl.Settings().OutputDir + "/transcription.txt"
		}
	case "y":
		if m.ctl.CopyText() == nil {
			m.ui.copied = true
		}
	case "m":
		m.ctl.SelectModel(string(nextSize(m.ctl)))
	case "e":
		if !m.ctl.Busy() {
			m.ctl.SetEngine(string(nextVariant(m.ctl)))
		}
	case "c":
		if !m.ctl.Busy() {
			m.ctl.SetChunked(!m.ctl.Settings().Chunked)
		}
	}
	return m, nil
}

func (m tuiModel) cancel() {
	if m.ui.progress != nil {
		m.ui.cancelling = true
	}
}

func nextSize(ctl *app.Controller) transcriber.Size {
	cur := transcriber.Size(ctl.Settings().Model)
	for i, s := range transcriber.Sizes {
		if s == cur {
			return transcriber.Sizes[(i+1)%len(transcriber.Sizes)]
		}
	}
	return transcriber.Sizes[0]
}

func nextVariant(ctl *app.Controller) transcriber.Variant {
	cur := transcriber.Variant(ctl.Settings().Engine)
	for i, v := range transcriber.Variants {
		if v == cur {
			return transcriber.Variants[(i+1)%len(transcriber.Variants)]
		}
	}
	return transcriber.Variants[0]
}

func modeLineText(ctl *app.Controller) string {
	s := ctl.Settings()
	model := "no model"
	if m, ok := ctl.Model(); ok {
		model = m.String()
	}
	mode := "whole file"
	if s.Chunked {
		mode = fmt.Sprintf("chunked %ds", s.ChunkSeconds)
	}
	return fmt.Sprintf("[%s | %s]", model, mode)
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const sideWidth = 38
	recording := m.ctl.Recording()

	var side []string
	if recording {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("● REC %.1fs", m.recElapsed.Seconds()))
		side = append(side, status, renderMeter(m.meter, sideWidth-4))
		if m.recElapsed > time.Second && m.peakLevel < 0.02 {
			warn := lipgloss.NewStyle().
				Foreground(lipgloss.Color("208")).
				Render("  ⚠ no voice detected")
			side = append(side, warn)
		}
	} else if p := m.ui.progress; p != nil {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true).
			Render(fmt.Sprintf("◐ TRANSCRIBING %.0f%%", p.Progress))
		side = append(side, status, renderBar(p.Progress, sideWidth-4))
		elapsed := lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Render(fmt.Sprintf("elapsed %.0fs", p.Elapsed.Seconds()))
		side = append(side, elapsed)
		if m.ui.cancelling {
			side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("cancelling..."))
		}
	} else {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY")
		side = append(side, status)
	}

	side = append(side, "",
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(modeLineText(m.ctl)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.deviceLine),
	)
	if m.ctl.HasRecording() {
		side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("recording in memory"))
	}

	side = append(side, "")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	for _, k := range [][2]string{
		{"o", "open file"},
		{"r", "record / stop"},
		{"t", "transcribe recording"},
		{"w", "save recording"},
		{"s", "save text"},
		{"y", "copy text"},
		{"m e c", "model, engine, chunked"},
		{"esc", "cancel"},
		{"q", "quit"},
	} {
		side = append(side, boldStyle.Render(k[0])+helpStyle.Render(" "+k[1]))
	}
	side = append(side, helpStyle.Render("wisp "+version))

	sidePadded := make([]string, m.height)
	for i := range sidePadded {
		if i < len(side) {
			sidePadded[i] = side[i]
		}
	}
	sidePanel := lipgloss.NewStyle().
		Width(sideWidth - 1).
		Height(m.height).
		Render(strings.Join(sidePadded, "\n"))

	textWidth := m.width - sideWidth - 1
	if textWidth < 20 {
		textWidth = 20
	}
	wrapWidth := textWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var body strings.Builder
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("246")).
		Render(fmt.Sprintf("Transcription (#%d)", m.ctl.Count()))
	body.WriteString(title + "\n\n")

	// Reserve the bottom rows for the status line and prompt.
	room := m.height - 6
	if room < 1 {
		room = 1
	}
	if m.ui.text != "" {
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
		lines := wrapText(m.ui.text, wrapWidth)
		// Keep the end of the text in view.
		if len(lines) > room {
			lines = lines[len(lines)-room:]
		}
		for i, line := range lines {
			body.WriteString(textStyle.Render(line))
			if i == len(lines)-1 && m.ui.copied {
				body.WriteString(" " + lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("[✓ copied]"))
			}
			body.WriteString("\n")
		}
	} else {
		body.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("No transcription yet") + "\n")
	}

	if m.ui.status != "" {
		color := "245"
		switch m.ui.statusLevel {
		case app.Warning:
			color = "208"
		case app.Failure:
			color = "196"
		}
		body.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(color)).
			Render(strings.Join(wrapText(m.ui.status, wrapWidth), "\n")) + "\n")
	}
	if m.prompt != promptNone {
		body.WriteString("\n" + boldStyle.Render(m.prompt.String()) + m.input + "█\n")
	}

	textPanel := lipgloss.NewStyle().
		Width(textWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(body.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, sidePanel, textPanel)
}

func renderBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(percent * float64(width) / 100)
	filled = max(0, min(filled, width))
	return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render(strings.Repeat("░", width-filled))
}

// renderMeter draws the capture level on a log-ish scale so quiet speech is
// still visible.
func renderMeter(level float64, width int) string {
	if width < 4 {
		width = 4
	}
	v := math.Sqrt(math.Min(level*8, 1))
	filled := int(v * float64(width))
	color := "42"
	if v > 0.85 {
		color = "196"
	} else if v > 0.6 {
		color = "214"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("▮", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render(strings.Repeat("▯", width-filled))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		for len(para) > width {
			splitAt := width
			for i := width; i > 0; i-- {
				if para[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, para[:splitAt])
			para = strings.TrimLeft(para[splitAt:], " ")
		}
		lines = append(lines, para)
	}
	return lines
}
