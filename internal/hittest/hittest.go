// Package hittest maps pointer positions onto the avatar's mouth hot-zone.
package hittest

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/04shr/petzy/internal/frame"
)

// DefaultAutoClose is how long the mouth stays open after a hit.
const DefaultAutoClose = 1000 * time.Millisecond

// Point is a position in the same coordinate space as the bounds it is tested against.
type Point struct {
	X, Y float32
}

// Rect is an on-screen rectangle anchored at its top-left corner.
type Rect struct {
	Left, Top, Width, Height float32
}

// Zone is a sub-rectangle expressed as fractions of a Rect. Bounds are inclusive.
type Zone struct {
	MinX, MaxX, MinY, MaxY float32
}

// MouthZone is where a dropped item counts as fed.
var MouthZone = Zone{MinX: 0.35, MaxX: 0.65, MinY: 0.55, MaxY: 0.75}

// valid reports whether r has a finite, positive area.
func (r Rect) valid() bool {
	return r.Width > 0 && r.Height > 0 && !math32.IsInf(r.Width, 0) && !math32.IsInf(r.Height, 0)
}

// Within reports whether the fractional coordinates lie inside z, edges included.
func (z Zone) Within(x, y float32) bool {
	return x >= z.MinX && x <= z.MaxX && y >= z.MinY && y <= z.MaxY
}

// Over returns z laid over bounds in bounds' coordinate space.
func (z Zone) Over(bounds Rect) (left, top, right, bottom float32) {
	left = bounds.Left + float32(z.MinX*bounds.Width)
	right = bounds.Left + float32(z.MaxX*bounds.Width)
	top = bounds.Top + float32(z.MinY*bounds.Height)
	bottom = bounds.Top + float32(z.MaxY*bounds.Height)
	return left, top, right, bottom
}

// Contains reports whether p falls inside z laid over bounds. Edges are compared in
// absolute coordinates so a point computed from the same fractions always hits.
func (z Zone) Contains(p Point, bounds Rect) bool {
	if !bounds.valid() || math32.IsNaN(p.X) || math32.IsNaN(p.Y) {
		return false
	}
	left, top, right, bottom := z.Over(bounds)
	return p.X >= left && p.X <= right && p.Y >= top && p.Y <= bottom
}

// Opener is the part of the mouth controller a hit needs.
type Opener interface {
	SetOpen(open bool)
}

// Engine opens the mouth when a drop lands in its zone and closes it again after a delay.
// Only one auto-close timer is ever armed; a new hit restarts it.
type Engine struct {
	zone  Zone
	mouth Opener
	sched *frame.Scheduler
	delay time.Duration
	timer *frame.Timer
}

// New returns an engine using MouthZone. A non-positive delay uses DefaultAutoClose.
func New(mouth Opener, sched *frame.Scheduler, delay time.Duration) *Engine {
	if delay <= 0 {
		delay = DefaultAutoClose
	}
	return &Engine{zone: MouthZone, mouth: mouth, sched: sched, delay: delay}
}

// Zone returns the zone hits are tested against.
func (e *Engine) Zone() Zone { return e.zone }

// Hit tests p against the zone laid over bounds. On a hit the mouth opens and the
// auto-close timer is (re)armed.
func (e *Engine) Hit(p Point, bounds Rect) bool {
	if !e.zone.Contains(p, bounds) {
		return false
	}
	e.mouth.SetOpen(true)
	e.timer.Stop()
	e.timer = e.sched.After(e.delay, func() { e.mouth.SetOpen(false) })
	return true
}

// Pending reports whether an auto-close is scheduled.
func (e *Engine) Pending() bool { return e.timer.Pending() }

// Cancel drops a scheduled auto-close, leaving the mouth as it is.
func (e *Engine) Cancel() {
	e.timer.Stop()
	e.timer = nil
}
