package panels

import (
	"github.com/04shr/petzy/internal/hittest"
)

// Dropper is the avatar's drop target.
type Dropper interface {
	Drop(p hittest.Point, bounds hittest.Rect) bool
}

// Feed turns a food item dropped on the pet's mouth into a feed action.
type Feed struct {
	target  Dropper
	actions *Actions
}

// NewFeed returns the feed panel.
func NewFeed(target Dropper, actions *Actions) *Feed {
	return &Feed{target: target, actions: actions}
}

// Drop reports whether the item landed in the mouth zone, and if so the notification.
func (f *Feed) Drop(p hittest.Point, bounds hittest.Rect) (string, bool) {
	if !f.target.Drop(p, bounds) {
		return "", false
	}
	msg, _, err := f.actions.Perform(ActionFeed)
	if err != nil {
		return "", false
	}
	return msg, true
}
