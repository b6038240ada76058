package hittest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/04shr/petzy/internal/frame"
	"github.com/04shr/petzy/internal/hittest"
)

type fakeMouth struct {
	open  bool
	calls []bool
}

func (m *fakeMouth) SetOpen(open bool) {
	m.open = open
	m.calls = append(m.calls, open)
}

var box = hittest.Rect{Left: 100, Top: 50, Width: 200, Height: 400}

func at(fx, fy float32) hittest.Point {
	return hittest.Point{X: box.Left + fx*box.Width, Y: box.Top + fy*box.Height}
}

func TestMouthZoneBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float32
		inside bool
	}{
		{"center", 0.5, 0.65, true},
		{"left edge", 0.35, 0.65, true},
		{"right edge", 0.65, 0.65, true},
		{"top edge", 0.5, 0.55, true},
		{"bottom edge", 0.5, 0.75, true},
		{"corner", 0.35, 0.75, true},
		{"just left", 0.3499, 0.65, false},
		{"just right", 0.6501, 0.65, false},
		{"just above", 0.5, 0.5499, false},
		{"just below", 0.5, 0.7501, false},
		{"outside bounds", -0.1, 1.2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, hittest.MouthZone.Within(tt.x, tt.y))
		})
	}
}

func TestContainsUsesBounds(t *testing.T) {
	assert.True(t, hittest.MouthZone.Contains(at(0.5, 0.65), box))
	assert.False(t, hittest.MouthZone.Contains(at(0.1, 0.1), box))
	// Exact pixel edges: 100 + 0.35*200 = 170, 50 + 0.55*400 = 270.
	assert.True(t, hittest.MouthZone.Contains(hittest.Point{X: 170, Y: 270}, box))
	assert.False(t, hittest.MouthZone.Contains(hittest.Point{X: 169, Y: 270}, box))
}

func TestZoneEdgesInclusiveForAnyBounds(t *testing.T) {
	z := hittest.MouthZone
	for _, left := range []float32{0, 13, 250.5} {
		for w := 1; w <= 2000; w++ {
			r := hittest.Rect{Left: left, Top: 7, Width: float32(w), Height: 1000}
			zl, zt, zr, zb := z.Over(r)
			for _, p := range []hittest.Point{{X: zl, Y: zt}, {X: zr, Y: zt}, {X: zl, Y: zb}, {X: zr, Y: zb}} {
				if !z.Contains(p, r) {
					t.Fatalf("edge %+v reported outside %+v", p, r)
				}
			}
		}
	}
}

func TestDegenerateBoundsNeverHit(t *testing.T) {
	for _, r := range []hittest.Rect{
		{Width: 0, Height: 100},
		{Width: 100, Height: 0},
		{Width: -5, Height: 100},
	} {
		assert.False(t, hittest.MouthZone.Contains(hittest.Point{}, r))
	}
}

func TestHitOpensThenAutoCloses(t *testing.T) {
	clock := frame.NewManualClock(time.Unix(0, 0))
	sched := frame.New(clock)
	m := &fakeMouth{}
	e := hittest.New(m, sched, 0)

	assert.True(t, e.Hit(at(0.5, 0.6), box))
	assert.True(t, m.open)
	assert.True(t, e.Pending())

	clock.Advance(999 * time.Millisecond)
	sched.Tick()
	assert.True(t, m.open)

	clock.Advance(time.Millisecond)
	sched.Tick()
	assert.False(t, m.open)
	assert.False(t, e.Pending())
}

func TestMissDoesNothing(t *testing.T) {
	sched := frame.New(frame.NewManualClock(time.Unix(0, 0)))
	m := &fakeMouth{}
	e := hittest.New(m, sched, 0)

	assert.False(t, e.Hit(at(0.1, 0.1), box))
	assert.Empty(t, m.calls)
	assert.False(t, e.Pending())
}

func TestSecondHitRestartsSingleTimer(t *testing.T) {
	clock := frame.NewManualClock(time.Unix(0, 0))
	sched := frame.New(clock)
	m := &fakeMouth{}
	e := hittest.New(m, sched, time.Second)

	e.Hit(at(0.5, 0.6), box)
	clock.Advance(600 * time.Millisecond)
	sched.Tick()
	e.Hit(at(0.5, 0.6), box)
	assert.Equal(t, 1, sched.PendingTimers())

	clock.Advance(600 * time.Millisecond)
	sched.Tick()
	assert.True(t, m.open, "first timer must have been cancelled")

	clock.Advance(400 * time.Millisecond)
	sched.Tick()
	assert.False(t, m.open)
	assert.Equal(t, []bool{true, true, false}, m.calls)
}
