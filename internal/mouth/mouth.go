// Package mouth switches the avatar between its closed and open mouth poses.
package mouth

import (
	"math"
	"time"

	"github.com/04shr/petzy/internal/scene"
)

const (
	// DefaultClosedNode and DefaultOpenNode are the pose node names exported by the pet asset.
	DefaultClosedNode = "Mouth_001"
	DefaultOpenNode   = "Mouth_002"
	// DefaultCadence is the speaking oscillation rate in radians per millisecond.
	DefaultCadence = 0.005
)

// Controller owns the two mouth pose nodes. Exactly one of them is visible whenever both
// were found; when either is missing every method is a no-op.
type Controller struct {
	closed   *scene.Node
	open     *scene.Node
	speaking bool
	cadence  float64
}

// New returns an unbound controller. A non-positive cadence uses DefaultCadence.
func New(cadence float64) *Controller {
	if cadence <= 0 || math.IsNaN(cadence) || math.IsInf(cadence, 0) {
		cadence = DefaultCadence
	}
	return &Controller{cadence: cadence}
}

// Bind looks up the pose nodes in g and shows the closed pose. It reports whether both were
// found; if not, the controller stays inert until the next Bind.
func (c *Controller) Bind(g *scene.Graph, closedName, openName string) bool {
	c.closed, c.open = nil, nil
	closed, open := g.Lookup(closedName), g.Lookup(openName)
	if closed == nil || open == nil || closed == open {
		return false
	}
	c.closed, c.open = closed, open
	c.show(false)
	return true
}

// Unbind forgets the pose nodes and stops speaking.
func (c *Controller) Unbind() {
	c.closed, c.open = nil, nil
	c.speaking = false
}

// Ready reports whether both pose nodes are bound.
func (c *Controller) Ready() bool { return c.closed != nil && c.open != nil }

// SetOpen shows the open pose when open is true, the closed pose otherwise.
func (c *Controller) SetOpen(open bool) { c.show(open) }

// Toggle flips the pose based on what is currently visible.
func (c *Controller) Toggle() {
	if !c.Ready() {
		return
	}
	c.show(c.closed.Visible)
}

// IsOpen reports whether the open pose is showing.
func (c *Controller) IsOpen() bool { return c.Ready() && c.open.Visible }

// StartSpeaking begins the talking oscillation on the next Tick.
func (c *Controller) StartSpeaking() {
	if !c.Ready() {
		return
	}
	c.speaking = true
}

// StopSpeaking ends the oscillation and always leaves the mouth closed.
func (c *Controller) StopSpeaking() {
	if !c.Ready() {
		return
	}
	c.speaking = false
	c.show(false)
}

// Speaking reports whether the oscillation is running.
func (c *Controller) Speaking() bool { return c.speaking }

// Tick drives the oscillation: open while sin(ms * cadence) is positive.
func (c *Controller) Tick(now time.Time) {
	if !c.speaking || !c.Ready() {
		return
	}
	ms := float64(now.UnixNano()) / float64(time.Millisecond)
	c.show(math.Sin(ms*c.cadence) > 0)
}

func (c *Controller) show(open bool) {
	if !c.Ready() {
		return
	}
	c.open.Visible = open
	c.closed.Visible = !open
}
