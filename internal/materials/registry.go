package materials

import (
	"github.com/jinzhu/copier"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/scene"
)

// MeshEntry is one paintable surface of the loaded avatar. Surface belongs to the scene
// graph; the registry only points at it.
type MeshEntry struct {
	Name     string
	Surface  *scene.Node
	Original colorful.Color
	Target   colorful.Color
}

// Swatch is a mesh name with its color in "#rrggbb" form.
type Swatch struct {
	Name  string
	Color string
}

// Fallback is shown to panels while no asset is loaded, so color pickers stay usable.
var Fallback = []Swatch{
	{Name: "Body", Color: "#c8a27a"},
	{Name: "Ears", Color: "#8b5a2b"},
	{Name: "Eyes", Color: "#222222"},
	{Name: "Nose", Color: "#3b2f2f"},
}

// Registry maps stable mesh names to entries for one asset generation. Populate rebuilds
// it wholesale; nothing is looked up by walking the scene graph afterwards.
type Registry struct {
	entries    map[string]*MeshEntry
	order      []string
	generation int
	log        *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{entries: make(map[string]*MeshEntry), log: log}
}

// Populate clears the registry and registers every node of g that carries a material.
// Shared materials are cloned once per node; nodes whose material is already a private
// clone keep it, so populating the same graph again never clones twice.
func (r *Registry) Populate(g *scene.Graph) {
	r.Clear()
	g.Traverse(func(n *scene.Node) {
		if n.Material == nil {
			return
		}
		if !n.Material.Private {
			n.Material = cloneMaterial(n.Material)
		}
		n.Material.ColorSpace = scene.ColorSpaceSRGB
		n.Material.NeedsUpdate = true

		name := n.Name
		if name == "" {
			name = n.ID
		}
		if _, dup := r.entries[name]; dup {
			r.log.Warn("duplicate mesh name, keeping first", zap.String("mesh", name), zap.Int("node", n.Index))
			return
		}
		r.entries[name] = &MeshEntry{
			Name:     name,
			Surface:  n,
			Original: n.Material.Base,
			Target:   n.Material.Base,
		}
		r.order = append(r.order, name)
	})
	r.log.Debug("mesh registry populated",
		zap.String("asset", g.Name),
		zap.Int("meshes", len(r.order)),
		zap.Int("generation", r.generation))
}

// Clear drops every entry and starts a new generation.
func (r *Registry) Clear() {
	r.entries = make(map[string]*MeshEntry)
	r.order = nil
	r.generation++
}

// Generation increments every time the registry is cleared.
func (r *Registry) Generation() int { return r.generation }

// Len returns the number of registered meshes.
func (r *Registry) Len() int { return len(r.order) }

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*MeshEntry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns mesh names in registration order, or the fallback names when empty.
func (r *Registry) Names() []string {
	if len(r.order) == 0 {
		out := make([]string, len(Fallback))
		for i, s := range Fallback {
			out[i] = s.Name
		}
		return out
	}
	return append([]string(nil), r.order...)
}

// Swatches returns every mesh with its target color, or the fallback list when empty.
func (r *Registry) Swatches() []Swatch {
	if len(r.order) == 0 {
		return append([]Swatch(nil), Fallback...)
	}
	out := make([]Swatch, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Swatch{Name: name, Color: Hex(r.entries[name].Target)})
	}
	return out
}

// SetTarget changes the color name converges to. It reports false for unknown meshes.
func (r *Registry) SetTarget(name string, c colorful.Color) bool {
	e, ok := r.entries[name]
	if !ok {
		return false
	}
	e.Target = c
	return true
}

// Restore points the target back at the load-time color and returns it.
func (r *Registry) Restore(name string) (colorful.Color, bool) {
	e, ok := r.entries[name]
	if !ok {
		return colorful.Color{}, false
	}
	e.Target = e.Original
	return e.Original, true
}

// cloneMaterial deep-copies a shared material and records its color as the base.
func cloneMaterial(src *scene.Material) *scene.Material {
	dst := new(scene.Material)
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		c := *src
		dst = &c
	}
	dst.Private = true
	dst.Base = dst.Color
	return dst
}
