package materials

import "time"

// DefaultRate is the fraction of the remaining distance covered each frame.
const DefaultRate = 0.18

// Animator converges every live material toward its entry's target color. Convergence is
// exponential and recomputed each frame, so targets may change mid-flight.
type Animator struct {
	reg  *Registry
	rate float64
}

// NewAnimator returns an animator over reg. A rate outside (0, 1] uses DefaultRate.
func NewAnimator(reg *Registry, rate float64) *Animator {
	if rate <= 0 || rate > 1 {
		rate = DefaultRate
	}
	return &Animator{reg: reg, rate: rate}
}

// Step advances every entry by one frame and flags its material for redraw.
func (a *Animator) Step() {
	for _, name := range a.reg.order {
		e := a.reg.entries[name]
		if e.Surface == nil || e.Surface.Material == nil {
			continue
		}
		m := e.Surface.Material
		m.Color = Lerp(m.Color, e.Target, a.rate)
		m.NeedsUpdate = true
	}
}

// Tick adapts Step to the frame scheduler's system signature.
func (a *Animator) Tick(time.Time) { a.Step() }
