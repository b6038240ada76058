package frame

import "time"

// System runs once per frame with the frame's timestamp. Systems must not block.
type System func(now time.Time)

// Timer is a single-shot callback armed on a Scheduler.
type Timer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// Stop cancels the timer. It reports false if the timer already fired or was stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending reports whether the timer is still waiting to fire.
func (t *Timer) Pending() bool {
	return t != nil && !t.stopped && !t.fired
}

// Scheduler is the single cooperative frame loop. The render loop calls Tick once per
// frame; systems run in registration order, then every due timer fires. Nothing here is
// safe for concurrent use; callers serialize access.
type Scheduler struct {
	clock   Clock
	systems []System
	timers  []*Timer
	frames  uint64
	last    time.Time
}

// New returns a scheduler reading time from clock (SystemClock when nil).
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Add registers a per-frame system.
func (s *Scheduler) Add(sys System) {
	s.systems = append(s.systems, sys)
}

// After arms fn to run on the first frame at or after now+d.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	t := &Timer{deadline: s.clock.Now().Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Tick runs one frame.
func (s *Scheduler) Tick() {
	now := s.clock.Now()
	s.last = now
	s.frames++
	for _, sys := range s.systems {
		sys(now)
	}

	if len(s.timers) == 0 {
		return
	}
	due := s.timers[:0:0]
	keep := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.stopped:
		case !now.Before(t.deadline):
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	clear(s.timers[len(keep):])
	s.timers = keep
	for _, t := range due {
		if t.stopped {
			continue
		}
		t.fired = true
		t.fn()
	}
}

// Frames returns how many frames have run.
func (s *Scheduler) Frames() uint64 { return s.frames }

// LastFrame returns the timestamp of the most recent frame.
func (s *Scheduler) LastFrame() time.Time { return s.last }

// PendingTimers returns the number of armed timers.
func (s *Scheduler) PendingTimers() int {
	n := 0
	for _, t := range s.timers {
		if t.Pending() {
			n++
		}
	}
	return n
}
