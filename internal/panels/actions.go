// Package panels implements the user-facing controls around the avatar: care actions,
// feeding by drag and drop, chat speech and teleporting between scenes. Panels only talk
// to the avatar through avatar.Controller and to storage through the preference store.
package panels

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/prefs"
)

// Action is something the user can do with the pet.
type Action string

const (
	ActionFeed   Action = "feed"
	ActionPlay   Action = "play"
	ActionSleep  Action = "sleep"
	ActionGroom  Action = "groom"
	ActionTalk   Action = "talk"
	ActionAnswer Action = "answer"
	ActionFact   Action = "fact"
	ActionWhat   Action = "what"
)

// Zone groups actions on the action bar.
type Zone struct {
	Name    string
	Actions []Action
}

// Zones are shown one at a time; ToggleZone cycles between them.
var Zones = []Zone{
	{Name: "Fun Zone", Actions: []Action{ActionFeed, ActionPlay, ActionSleep, ActionGroom}},
	{Name: "Intellectual Zone", Actions: []Action{ActionTalk, ActionAnswer, ActionFact, ActionWhat}},
}

var messages = map[Action]string{
	ActionFeed:   "Your pet is enjoying a delicious meal! 🍖",
	ActionPlay:   "Fetch time! Your pet is having a blast! 🎾",
	ActionGroom:  "Your pet looks amazing and feels fresh! ✨",
	ActionSleep:  "Sweet dreams! Your pet is resting peacefully 😴",
	ActionTalk:   "Having a wonderful conversation with your pet! 💬",
	ActionAnswer: "Your pet is thinking about the answer! ❓",
	ActionFact:   "Learning interesting facts together! 📚",
	ActionWhat:   "Exploring new questions and curiosities! 🤔",
}

// dayLayout keys the daily log.
const dayLayout = "2006-01-02"

// Notice returns the notification shown after a.
func Notice(a Action) string {
	if m, ok := messages[a]; ok {
		return m
	}
	return "Action completed! ✨"
}

// Known reports whether a is one of the zone actions.
func Known(a Action) bool {
	_, ok := messages[a]
	return ok
}

// PreferenceStore is the part of prefs.Store the panels need.
type PreferenceStore interface {
	Snapshot() prefs.Document
	Update(p prefs.Patch) *prefs.Pending
}

// Actions performs zone actions and keeps the care counters.
type Actions struct {
	store PreferenceStore
	now   func() time.Time
	log   *zap.Logger

	mu   sync.Mutex
	zone int
}

// NewActions returns the action bar. A nil now uses time.Now.
func NewActions(store PreferenceStore, now func() time.Time, log *zap.Logger) *Actions {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Actions{store: store, now: now, log: log}
}

// Zone returns the zone currently shown.
func (a *Actions) Zone() Zone {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Zones[a.zone]
}

// ToggleZone switches to the next zone and returns the notification for it.
func (a *Actions) ToggleZone() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zone = (a.zone + 1) % len(Zones)
	return fmt.Sprintf("Switched to %s! 🔄", Zones[a.zone].Name)
}

// Perform records act in the lifetime and daily counters and returns its notification.
// Feeding and playing also stamp lastFed and lastPlayedGame.
func (a *Actions) Perform(act Action) (string, *prefs.Pending, error) {
	if !Known(act) {
		return "", nil, fmt.Errorf("unknown action %q", act)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	doc := a.store.Snapshot()
	doc.Stats[string(act)]++
	day := now.Format(dayLayout)
	if doc.DailyLog[day] == nil {
		doc.DailyLog[day] = map[string]float64{}
	}
	doc.DailyLog[day][string(act)]++

	patch := prefs.Patch{}.WithStats(doc.Stats).WithDailyLog(doc.DailyLog)
	stamp := now.UTC().Format(time.RFC3339)
	switch act {
	case ActionFeed:
		patch = patch.WithLastFed(stamp)
	case ActionPlay:
		patch = patch.WithLastPlayedGame(stamp)
	}
	pending := a.store.Update(patch)
	a.log.Debug("action performed", zap.String("action", string(act)), zap.Float64("total", doc.Stats[string(act)]))
	return Notice(act), pending, nil
}
