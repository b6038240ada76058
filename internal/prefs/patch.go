package prefs

import (
	"encoding/json"
	"fmt"
)

// Patch is a set of top-level fields to replace. Fields not named in the patch are left
// alone both locally and remotely.
type Patch struct {
	values Document
	fields []Field
}

func (p Patch) with(f Field) Patch {
	for _, have := range p.fields {
		if have == f {
			return p
		}
	}
	p.fields = append(append([]Field(nil), p.fields...), f)
	return p
}

// WithMeshes replaces the saved mesh colors.
func (p Patch) WithMeshes(m []MeshColor) Patch {
	p.values.Meshes = append([]MeshColor{}, m...)
	return p.with(FieldMeshes)
}

// WithScene replaces the current scene. A nil scene clears it.
func (p Patch) WithScene(s *SceneAsset) Patch {
	if s != nil {
		v := *s
		s = &v
	}
	p.values.CurrentScene = s
	return p.with(FieldCurrentScene)
}

// WithStats replaces the lifetime action counters.
func (p Patch) WithStats(stats map[string]float64) Patch {
	p.values.Stats = Document{Stats: stats}.Clone().Stats
	return p.with(FieldStats)
}

// WithDailyLog replaces the per-day action counters.
func (p Patch) WithDailyLog(log map[string]map[string]float64) Patch {
	p.values.DailyLog = Document{DailyLog: log}.Clone().DailyLog
	return p.with(FieldDailyLog)
}

// WithLastFed records when the pet was last fed.
func (p Patch) WithLastFed(ts string) Patch {
	p.values.LastFed = &ts
	return p.with(FieldLastFed)
}

// WithLastPlayedGame records when a game was last played.
func (p Patch) WithLastPlayedGame(ts string) Patch {
	p.values.LastPlayedGame = &ts
	return p.with(FieldLastPlayedGame)
}

// Fields lists the fields the patch replaces, in the order they were added.
func (p Patch) Fields() []Field { return append([]Field(nil), p.fields...) }

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return len(p.fields) == 0 }

// apply copies the patched fields into d.
func (p Patch) apply(d *Document) {
	v := p.values.Clone()
	for _, f := range p.fields {
		switch f {
		case FieldMeshes:
			d.Meshes = v.Meshes
		case FieldCurrentScene:
			d.CurrentScene = v.CurrentScene
		case FieldStats:
			d.Stats = v.Stats
		case FieldDailyLog:
			d.DailyLog = v.DailyLog
		case FieldLastFed:
			d.LastFed = v.LastFed
		case FieldLastPlayedGame:
			d.LastPlayedGame = v.LastPlayedGame
		}
	}
}

// encode renders each patched field as a dotted "preferences.<field>" update.
func (p Patch) encode() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.fields))
	for _, f := range p.fields {
		var v any
		switch f {
		case FieldMeshes:
			v = p.values.Meshes
		case FieldCurrentScene:
			v = p.values.CurrentScene
		case FieldStats:
			v = p.values.Stats
		case FieldDailyLog:
			v = p.values.DailyLog
		case FieldLastFed:
			v = p.values.LastFed
		case FieldLastPlayedGame:
			v = p.values.LastPlayedGame
		default:
			return nil, fmt.Errorf("unknown preference field %q", f)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f, err)
		}
		out[documentField+"."+string(f)] = raw
	}
	return out, nil
}
