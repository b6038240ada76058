// Package avatar is the single handle panels use to drive the pet: mouth poses, speaking,
// mesh colors and scenery. Every call is safe from any goroutine; the render loop advances
// the avatar with Tick.
package avatar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/frame"
	"github.com/04shr/petzy/internal/hittest"
	"github.com/04shr/petzy/internal/materials"
	"github.com/04shr/petzy/internal/mouth"
	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scene"
)

// DefaultAssetPath is loaded when Options.AssetPath is empty.
const DefaultAssetPath = "models/mouth.glb"

// MeshColor is a mesh name with its target color in "#rrggbb" form.
type MeshColor = prefs.MeshColor

// Controller is the fixed command surface shared by every panel.
type Controller interface {
	SetMouthOpen(open bool)
	ToggleMouth()
	StartSpeaking()
	StopSpeaking()
	MeshNames() []string
	Meshes() []MeshColor
	MeshColor(name string) (string, bool)
	SetMeshColor(name, hex string) bool
	ResetMeshColor(name string) (string, bool)
}

// Loader supplies scene graphs. assets.Loader implements it.
type Loader interface {
	Load(ctx context.Context, path string) (*scene.Graph, error)
}

// Size is the display size hint in pixels.
type Size struct {
	Width, Height int
}

// Options configures an Avatar. Zero values pick the defaults of each component.
type Options struct {
	AssetPath  string
	Size       Size
	ClosedNode string
	OpenNode   string
	Cadence    float64
	ColorRate  float64
	AutoClose  time.Duration
	Clock      frame.Clock
	Logger     *zap.Logger
	// Prefs receives mesh and scene changes. Nil keeps changes local.
	Prefs prefs.Sink
}

// LoadState is where the avatar's asset is in its lifecycle.
type LoadState int

const (
	StateEmpty LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "empty"
}

// Status is a snapshot for overlays and logs.
type Status struct {
	Asset    string
	State    LoadState
	Meshes   int
	Open     bool
	Speaking bool
	Scene    string
	Frames   uint64

	// Generation changes every time the mesh registry is rebuilt.
	Generation int
}

// Avatar implements Controller over one loaded asset.
type Avatar struct {
	loader Loader
	opts   Options
	log    *zap.Logger

	mu      sync.Mutex
	asset   string
	state   LoadState
	loadSeq uint64
	graph   *scene.Graph
	reg     *materials.Registry
	anim    *materials.Animator
	mouth   *mouth.Controller
	hits    *hittest.Engine
	sched   *frame.Scheduler
	scene   *prefs.SceneAsset
	size    Size
}

var _ Controller = (*Avatar)(nil)

// New returns an avatar with nothing loaded yet. Call Load to fetch opts.AssetPath.
func New(loader Loader, opts Options) *Avatar {
	if opts.AssetPath == "" {
		opts.AssetPath = DefaultAssetPath
	}
	if opts.ClosedNode == "" {
		opts.ClosedNode = mouth.DefaultClosedNode
	}
	if opts.OpenNode == "" {
		opts.OpenNode = mouth.DefaultOpenNode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("avatar")

	a := &Avatar{
		loader: loader,
		opts:   opts,
		log:    log,
		asset:  opts.AssetPath,
		size:   opts.Size,
		reg:    materials.NewRegistry(log),
		mouth:  mouth.New(opts.Cadence),
		sched:  frame.New(opts.Clock),
	}
	a.anim = materials.NewAnimator(a.reg, opts.ColorRate)
	a.hits = hittest.New(a.mouth, a.sched, opts.AutoClose)
	a.sched.Add(a.mouth.Tick)
	a.sched.Add(a.anim.Tick)
	return a
}

// Load fetches and installs the configured asset.
func (a *Avatar) Load(ctx context.Context) error {
	a.mu.Lock()
	path := a.asset
	a.mu.Unlock()
	return a.Swap(ctx, path)
}

// Swap replaces the current asset with the one at path. The mesh registry and mouth
// bindings are rebuilt from scratch. If another swap starts before this one finishes, the
// older result is discarded. On failure the registry stays empty and callers see the
// fallback mesh list.
func (a *Avatar) Swap(ctx context.Context, path string) error {
	a.mu.Lock()
	a.loadSeq++
	seq := a.loadSeq
	a.asset = path
	a.state = StateLoading
	a.mu.Unlock()

	g, err := a.loader.Load(ctx, path)

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.loadSeq {
		a.log.Debug("discarding superseded load", zap.String("asset", path))
		return nil
	}
	if err != nil {
		a.uninstall()
		a.state = StateFailed
		a.log.Error("avatar asset failed to load, using fallback meshes", zap.String("asset", path), zap.Error(err))
		return fmt.Errorf("avatar: %w", err)
	}
	a.install(g)
	return nil
}

func (a *Avatar) install(g *scene.Graph) {
	a.hits.Cancel()
	a.graph = g
	a.reg.Populate(g)
	if !a.mouth.Bind(g, a.opts.ClosedNode, a.opts.OpenNode) {
		a.log.Warn("mouth pose nodes not found, mouth commands disabled",
			zap.String("closed", a.opts.ClosedNode),
			zap.String("open", a.opts.OpenNode))
	}
	a.state = StateReady
	a.log.Info("avatar ready", zap.String("asset", a.asset), zap.Int("meshes", a.reg.Len()))
}

func (a *Avatar) uninstall() {
	a.hits.Cancel()
	a.graph = nil
	a.reg.Clear()
	a.mouth.Unbind()
}

// Tick advances one frame: speaking oscillation, color convergence, then due timers.
func (a *Avatar) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sched.Tick()
}

// SetMouthOpen shows the open or closed pose.
func (a *Avatar) SetMouthOpen(open bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mouth.SetOpen(open)
}

// ToggleMouth flips the pose.
func (a *Avatar) ToggleMouth() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mouth.Toggle()
}

// StartSpeaking starts the talking oscillation.
func (a *Avatar) StartSpeaking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mouth.StartSpeaking()
}

// StopSpeaking stops talking and closes the mouth.
func (a *Avatar) StopSpeaking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mouth.StopSpeaking()
}

// MeshNames lists paintable meshes, or the fallback names while nothing is loaded.
func (a *Avatar) MeshNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg.Names()
}

// Meshes lists every mesh with its target color, or the fallback list.
func (a *Avatar) Meshes() []MeshColor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meshes()
}

func (a *Avatar) meshes() []MeshColor {
	swatches := a.reg.Swatches()
	out := make([]MeshColor, len(swatches))
	for i, s := range swatches {
		out[i] = MeshColor{Name: s.Name, Color: s.Color}
	}
	return out
}

// MeshColor returns the color name is converging to.
func (a *Avatar) MeshColor(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.reg.Lookup(name)
	if !ok {
		a.log.Warn("get mesh color: mesh not found", zap.String("mesh", name))
		return "", false
	}
	return materials.Hex(e.Target), true
}

// SetMeshColor retargets name to hex. Unknown meshes and malformed colors are rejected and
// leave the registry untouched.
func (a *Avatar) SetMeshColor(name, hex string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.reg.Lookup(name); !ok {
		a.log.Warn("set mesh color: mesh not found", zap.String("mesh", name))
		return false
	}
	c, err := materials.ParseHex(hex)
	if err != nil {
		a.log.Warn("set mesh color: invalid color", zap.String("mesh", name), zap.String("color", hex), zap.Error(err))
		return false
	}
	a.reg.SetTarget(name, c)
	a.forwardMeshes()
	return true
}

// ResetMeshColor retargets name to its load-time color and returns that color.
func (a *Avatar) ResetMeshColor(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.reg.Restore(name)
	if !ok {
		return "", false
	}
	a.forwardMeshes()
	return materials.Hex(c), true
}

// ApplyColors retargets every known mesh listed in saved without forwarding anything to
// preferences. It returns how many were applied.
func (a *Avatar) ApplyColors(saved []MeshColor) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, m := range saved {
		c, err := materials.ParseHex(m.Color)
		if err != nil {
			continue
		}
		if a.reg.SetTarget(m.Name, c) {
			n++
		}
	}
	return n
}

// forwardMeshes must be called with mu held.
func (a *Avatar) forwardMeshes() {
	if a.opts.Prefs == nil || a.reg.Len() == 0 {
		return
	}
	a.opts.Prefs.Update(prefs.Patch{}.WithMeshes(a.meshes()))
}

// SetScene teleports to s.
func (a *Avatar) SetScene(s prefs.SceneAsset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scene = &s
	if a.opts.Prefs != nil {
		a.opts.Prefs.Update(prefs.Patch{}.WithScene(&s))
	}
}

// RestoreScene sets the scene without forwarding it, for state loaded from preferences.
func (a *Avatar) RestoreScene(s *prefs.SceneAsset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s == nil {
		a.scene = nil
		return
	}
	v := *s
	a.scene = &v
}

// Scene returns the current scene, if one was chosen.
func (a *Avatar) Scene() (prefs.SceneAsset, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		return prefs.SceneAsset{}, false
	}
	return *a.scene, true
}

// Drop tests a dropped item against the mouth zone laid over bounds. A hit opens the mouth
// and schedules it to close.
func (a *Avatar) Drop(p hittest.Point, bounds hittest.Rect) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits.Hit(p, bounds)
}

// Resize updates the display size hint.
func (a *Avatar) Resize(size Size) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = size
}

// Scale is the model scale for the current display size: a quarter of the shorter side.
func (a *Avatar) Scale() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ResponsiveScale(a.size)
}

// ResponsiveScale returns min(width, height) / 4, or 1 for an unknown size.
func ResponsiveScale(s Size) float32 {
	if s.Width <= 0 || s.Height <= 0 {
		return 1
	}
	return math32.Min(float32(s.Width), float32(s.Height)) / 4
}

// Render calls fn with the live scene graph and registry while holding the avatar lock.
// fn must not call back into the avatar. The graph is nil while nothing is loaded.
func (a *Avatar) Render(fn func(g *scene.Graph, reg *materials.Registry)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.graph, a.reg)
}

// Status returns a snapshot of the avatar.
func (a *Avatar) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{
		Asset:      a.asset,
		State:      a.state,
		Meshes:     a.reg.Len(),
		Open:       a.mouth.IsOpen(),
		Speaking:   a.mouth.Speaking(),
		Frames:     a.sched.Frames(),
		Generation: a.reg.Generation(),
	}
	if a.scene != nil {
		st.Scene = a.scene.Name
	}
	return st
}
