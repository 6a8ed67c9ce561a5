//go:build gui

package gui

import (
	"image/color"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const meterCells = 24

var (
	meterOff   = color.RGBA{48, 48, 48, 255}
	meterLow   = color.RGBA{80, 200, 120, 255}
	meterMid   = color.RGBA{255, 175, 0, 255}
	meterHigh  = color.RGBA{255, 0, 0, 255}
	meterMuted = color.RGBA{95, 0, 0, 255}
)

// LevelMeter shows the capture level as a row of cells. SetLevel may be
// called from any goroutine; Refresh must run on the UI thread.
type LevelMeter struct {
	widget.BaseWidget
	mu     sync.Mutex
	level  float64
	active bool
}

func NewLevelMeter() *LevelMeter {
	m := &LevelMeter{}
	m.ExtendBaseWidget(m)
	return m
}

func (m *LevelMeter) SetActive(on bool) {
	m.mu.Lock()
	m.active = on
	if !on {
		m.level = 0
	}
	m.mu.Unlock()
}

// SetLevel takes an RMS value in [0,1]. Rises are fast and falls slow so
// speech reads as a steady bar.
func (m *LevelMeter) SetLevel(l float64) {
	m.mu.Lock()
	if m.active {
		if l > m.level {
			m.level = m.level*0.2 + l*0.8
		} else {
			m.level = m.level*0.7 + l*0.3
		}
	}
	m.mu.Unlock()
}

func (m *LevelMeter) snapshot() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, m.active
}

func (m *LevelMeter) MinSize() fyne.Size {
	return fyne.NewSize(meterCells*6, 14)
}

func (m *LevelMeter) CreateRenderer() fyne.WidgetRenderer {
	r := &meterRenderer{meter: m}
	for i := range r.cells {
		r.cells[i] = canvas.NewRectangle(meterOff)
	}
	return r
}

type meterRenderer struct {
	meter *LevelMeter
	cells [meterCells]*canvas.Rectangle
}

func (r *meterRenderer) Layout(size fyne.Size) {
	cellW := size.Width / meterCells
	for i, c := range r.cells {
		c.Move(fyne.NewPos(float32(i)*cellW, 0))
		c.Resize(fyne.NewSize(cellW-1, size.Height))
	}
}

func (r *meterRenderer) MinSize() fyne.Size {
	return r.meter.MinSize()
}

func (r *meterRenderer) Refresh() {
	level, active := r.meter.snapshot()
	lit := litCells(level)
	for i, c := range r.cells {
		c.FillColor = cellColor(i, lit, active)
		c.Refresh()
	}
}

// litCells maps RMS to cells on a square-root scale so quiet speech shows.
func litCells(level float64) int {
	v := math.Sqrt(math.Min(level*8, 1))
	return int(v * meterCells)
}

func cellColor(i, lit int, active bool) color.Color {
	switch {
	case !active:
		return meterOff
	case i >= lit:
		return meterMuted
	case i >= meterCells*85/100:
		return meterHigh
	case i >= meterCells*60/100:
		return meterMid
	}
	return meterLow
}

func (r *meterRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, len(r.cells))
	for i, c := range r.cells {
		objs[i] = c
	}
	return objs
}

func (r *meterRenderer) Destroy() {}
