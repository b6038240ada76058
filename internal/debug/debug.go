package debug

import (
	"fmt"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/04shr/petzy/internal/avatar"
)

const (
	fpsFontSize   = 20
	fpsPadding    = 12
	fpsLineHeight = fpsFontSize + 4
	// updateInterval: only refresh overlay text every N frames to reduce allocations.
	updateInterval = 30
)

// StatusSource reports the avatar state shown by the status overlay.
type StatusSource interface {
	Status() avatar.Status
}

// Debug holds runtime overlays (FPS, heap, avatar status). All overlays are off by default.
type Debug struct {
	ShowFPS      bool
	ShowMemAlloc bool
	ShowStatus   bool
	status       StatusSource
	font         rl.Font
	frameCount   uint32
	lastFpsText  string
	lastMemText  string
	lastStatus   []string
	lastMemStats runtime.MemStats
}

// New returns a Debug system with all overlays hidden. status may be nil.
func New(status StatusSource) *Debug {
	return &Debug{status: status}
}

// SetShowFPS sets whether the FPS counter is drawn (top-right, green).
func (d *Debug) SetShowFPS(show bool) {
	d.ShowFPS = show
}

// SetShowMemAlloc sets whether the heap counter is drawn under FPS.
func (d *Debug) SetShowMemAlloc(show bool) {
	d.ShowMemAlloc = show
}

// SetShowStatus sets whether the avatar status block is drawn under the counters.
func (d *Debug) SetShowStatus(show bool) {
	d.ShowStatus = show
}

// SetFont sets the overlay font. Zero texture ID = raylib default.
func (d *Debug) SetFont(font rl.Font) {
	d.font = font
}

// StatusLines formats st for the overlay.
func StatusLines(st avatar.Status) []string {
	lines := []string{
		fmt.Sprintf("Asset: %s (%s)", st.Asset, st.State),
		fmt.Sprintf("Meshes: %d", st.Meshes),
		fmt.Sprintf("Mouth: open=%t speaking=%t", st.Open, st.Speaking),
	}
	if st.Scene != "" {
		lines = append(lines, "Scene: "+st.Scene)
	}
	return lines
}

// Draw renders enabled overlays right-aligned at the top of the screen. Text is only
// recomputed every updateInterval frames.
func (d *Debug) Draw() {
	d.frameCount++
	update := (d.frameCount % updateInterval) == 0
	if (d.ShowFPS && d.lastFpsText == "") || (d.ShowMemAlloc && d.lastMemText == "") || (d.ShowStatus && d.lastStatus == nil) {
		update = true
	}

	y := int32(fpsPadding)
	if d.ShowFPS {
		if update {
			d.lastFpsText = fmt.Sprintf("FPS: %d", rl.GetFPS())
		}
		d.drawRight(d.lastFpsText, y)
		y += fpsLineHeight
	}
	if d.ShowMemAlloc {
		if update {
			runtime.ReadMemStats(&d.lastMemStats)
			mb := float64(d.lastMemStats.Alloc) / (1024 * 1024)
			d.lastMemText = fmt.Sprintf("Mem: %.2f MiB", mb)
		}
		d.drawRight(d.lastMemText, y)
		y += fpsLineHeight
	}
	if d.ShowStatus && d.status != nil {
		if update {
			d.lastStatus = StatusLines(d.status.Status())
		}
		for _, line := range d.lastStatus {
			d.drawRight(line, y)
			y += fpsLineHeight
		}
	}
}

func (d *Debug) drawRight(text string, y int32) {
	if text == "" {
		return
	}
	screenW := int32(rl.GetScreenWidth())
	if d.font.Texture.ID != 0 {
		sz := float32(fpsFontSize)
		pos := rl.NewVector2(float32(screenW)-rl.MeasureTextEx(d.font, text, sz, 1).X-float32(fpsPadding), float32(y))
		rl.DrawTextEx(d.font, text, pos, sz, 1, rl.Green)
		return
	}
	w := rl.MeasureText(text, fpsFontSize)
	rl.DrawText(text, screenW-w-fpsPadding, y, fpsFontSize, rl.Green)
}
