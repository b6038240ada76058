package panels

import (
	"fmt"

	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scenery"
)

// SceneSetter is the avatar's teleport surface.
type SceneSetter interface {
	SetScene(s prefs.SceneAsset)
}

// Teleport moves the pet between the catalog's scenes.
type Teleport struct {
	catalog *scenery.Catalog
	target  SceneSetter
}

// NewTeleport returns the teleport panel.
func NewTeleport(catalog *scenery.Catalog, target SceneSetter) *Teleport {
	return &Teleport{catalog: catalog, target: target}
}

// Scenes lists the destinations.
func (t *Teleport) Scenes() []prefs.SceneAsset { return t.catalog.All() }

// Go teleports to the scene called name.
func (t *Teleport) Go(name string) (prefs.SceneAsset, error) {
	s, ok := t.catalog.Find(name)
	if !ok {
		return prefs.SceneAsset{}, fmt.Errorf("no scene named %q", name)
	}
	t.target.SetScene(s)
	return s, nil
}
