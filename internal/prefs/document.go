package prefs

import (
	"maps"
	"slices"
)

// MeshColor is one saved mesh customization.
type MeshColor struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SceneAsset is a selectable background. Values are replaced whole, never edited in place.
type SceneAsset struct {
	Name string `json:"name"`
	Img  string `json:"img"`
}

// Document is the per-user preference document.
type Document struct {
	Meshes         []MeshColor                   `json:"meshes"`
	CurrentScene   *SceneAsset                   `json:"currentScene"`
	Stats          map[string]float64            `json:"stats"`
	DailyLog       map[string]map[string]float64 `json:"dailyLog"`
	LastFed        *string                       `json:"lastFed"`
	LastPlayedGame *string                       `json:"lastPlayedGame"`
}

// Field names a top-level key of Document. Merges and persistence never go below this level.
type Field string

const (
	FieldMeshes         Field = "meshes"
	FieldCurrentScene   Field = "currentScene"
	FieldStats          Field = "stats"
	FieldDailyLog       Field = "dailyLog"
	FieldLastFed        Field = "lastFed"
	FieldLastPlayedGame Field = "lastPlayedGame"
)

// Default returns the document a new user starts with.
func Default() Document {
	return Document{
		Meshes:   []MeshColor{},
		Stats:    map[string]float64{},
		DailyLog: map[string]map[string]float64{},
	}
}

// MeshColor returns the saved color for name.
func (d Document) MeshColor(name string) (string, bool) {
	for _, m := range d.Meshes {
		if m.Name == name {
			return m.Color, true
		}
	}
	return "", false
}

// Clone returns a copy sharing nothing mutable with d.
func (d Document) Clone() Document {
	out := Document{
		Meshes:   slices.Clone(d.Meshes),
		Stats:    maps.Clone(d.Stats),
		DailyLog: make(map[string]map[string]float64, len(d.DailyLog)),
	}
	if out.Meshes == nil {
		out.Meshes = []MeshColor{}
	}
	if out.Stats == nil {
		out.Stats = map[string]float64{}
	}
	for day, counts := range d.DailyLog {
		out.DailyLog[day] = maps.Clone(counts)
	}
	if d.CurrentScene != nil {
		s := *d.CurrentScene
		out.CurrentScene = &s
	}
	out.LastFed = cloneString(d.LastFed)
	out.LastPlayedGame = cloneString(d.LastPlayedGame)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
