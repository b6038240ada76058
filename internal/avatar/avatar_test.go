package avatar_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/04shr/petzy/internal/avatar"
	"github.com/04shr/petzy/internal/frame"
	"github.com/04shr/petzy/internal/hittest"
	"github.com/04shr/petzy/internal/materials"
	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scene"
	"github.com/04shr/petzy/internal/scene/scenetest"
)

type fakeLoader struct {
	mu    sync.Mutex
	err   error
	gates map[string]chan struct{}
}

func (f *fakeLoader) Load(ctx context.Context, path string) (*scene.Graph, error) {
	f.mu.Lock()
	gate, err := f.gates[path], f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	g := scenetest.PetGraph()
	g.Name = path
	return g, nil
}

type recordingSink struct {
	patches []prefs.Patch
}

func (r *recordingSink) Update(p prefs.Patch) *prefs.Pending {
	r.patches = append(r.patches, p)
	return nil
}

func newAvatar(t *testing.T, loader avatar.Loader) (*avatar.Avatar, *frame.ManualClock, *recordingSink) {
	t.Helper()
	clock := frame.NewManualClock(time.UnixMilli(0))
	sink := &recordingSink{}
	a := avatar.New(loader, avatar.Options{
		AssetPath: "models/pet.glb",
		Size:      avatar.Size{Width: 800, Height: 600},
		Clock:     clock,
		Prefs:     sink,
	})
	return a, clock, sink
}

func loaded(t *testing.T) (*avatar.Avatar, *frame.ManualClock, *recordingSink) {
	t.Helper()
	a, clock, sink := newAvatar(t, &fakeLoader{})
	require.NoError(t, a.Load(context.Background()))
	return a, clock, sink
}

func TestLoadPopulatesMeshes(t *testing.T) {
	a, _, _ := loaded(t)
	assert.Equal(t, []string{"Body", "Mouth_001", "Mouth_002", "id-accessory"}, a.MeshNames())
	st := a.Status()
	assert.Equal(t, avatar.StateReady, st.State)
	assert.Equal(t, 4, st.Meshes)
	assert.False(t, st.Open)
}

func TestSetMeshColorOnUnknownMesh(t *testing.T) {
	a, _, sink := loaded(t)
	before := a.Meshes()

	assert.False(t, a.SetMeshColor("NoSuchMesh", "#ff0000"))
	assert.Equal(t, before, a.Meshes())
	assert.Empty(t, sink.patches)
}

func TestUnknownMeshLookupsWarn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := avatar.New(&fakeLoader{}, avatar.Options{
		AssetPath: "models/pet.glb",
		Clock:     frame.NewManualClock(time.UnixMilli(0)),
		Logger:    zap.New(core),
	})
	require.NoError(t, a.Load(context.Background()))

	_, ok := a.MeshColor("NoSuchMesh")
	assert.False(t, ok)
	assert.False(t, a.SetMeshColor("NoSuchMesh", "#ff0000"))
	assert.Equal(t, 1, logs.FilterMessage("get mesh color: mesh not found").Len())
	assert.Equal(t, 1, logs.FilterMessage("set mesh color: mesh not found").Len())
}

func TestSetMeshColorRetargetsAndForwards(t *testing.T) {
	a, _, sink := loaded(t)

	require.True(t, a.SetMeshColor("Body", "#FF0000"))
	color, ok := a.MeshColor("Body")
	require.True(t, ok)
	assert.Equal(t, "#ff0000", color)

	require.Len(t, sink.patches, 1)
	assert.Equal(t, []prefs.Field{prefs.FieldMeshes}, sink.patches[0].Fields())
}

func TestSetMeshColorRejectsMalformedHex(t *testing.T) {
	a, _, sink := loaded(t)
	before, _ := a.MeshColor("Body")
	assert.False(t, a.SetMeshColor("Body", "reddish"))
	after, _ := a.MeshColor("Body")
	assert.Equal(t, before, after)
	assert.Empty(t, sink.patches)
}

func TestResetMeshColor(t *testing.T) {
	a, _, _ := loaded(t)
	original, _ := a.MeshColor("Body")
	require.True(t, a.SetMeshColor("Body", "#00ff00"))

	got, ok := a.ResetMeshColor("Body")
	require.True(t, ok)
	assert.Equal(t, original, got)
	now, _ := a.MeshColor("Body")
	assert.Equal(t, original, now)

	_, ok = a.ResetMeshColor("NoSuchMesh")
	assert.False(t, ok)
}

func TestTicksConvergeMaterialColor(t *testing.T) {
	a, clock, _ := loaded(t)
	require.True(t, a.SetMeshColor("Body", "#ffffff"))
	target, err := materials.ParseHex("#ffffff")
	require.NoError(t, err)

	last := 10.0
	for range 120 {
		clock.Advance(16 * time.Millisecond)
		a.Tick()
		a.Render(func(g *scene.Graph, _ *materials.Registry) {
			d := materials.Distance(g.Lookup("Body").Material.Color, target)
			assert.LessOrEqual(t, d, last)
			last = d
		})
	}
	assert.Less(t, last, 1e-6)
}

func TestFailedLoadFallsBack(t *testing.T) {
	a, _, _ := newAvatar(t, &fakeLoader{err: errors.New("404")})
	assert.Error(t, a.Load(context.Background()))

	assert.Equal(t, []string{"Body", "Ears", "Eyes", "Nose"}, a.MeshNames())
	assert.Equal(t, "#c8a27a", a.Meshes()[0].Color)
	assert.False(t, a.SetMeshColor("Body", "#ff0000"))
	assert.NotPanics(t, func() {
		a.SetMouthOpen(true)
		a.ToggleMouth()
		a.StartSpeaking()
		a.Tick()
		a.StopSpeaking()
	})
	assert.Equal(t, avatar.StateFailed, a.Status().State)
}

func TestMouthCommands(t *testing.T) {
	a, _, _ := loaded(t)
	a.SetMouthOpen(true)
	assert.True(t, a.Status().Open)
	a.ToggleMouth()
	assert.False(t, a.Status().Open)
	a.ToggleMouth()
	a.ToggleMouth()
	assert.False(t, a.Status().Open)
}

func TestSpeakingDrivenByTick(t *testing.T) {
	a, clock, _ := loaded(t)
	a.StartSpeaking()
	clock.Set(time.UnixMilli(100))
	a.Tick()
	assert.True(t, a.Status().Open)

	a.StopSpeaking()
	st := a.Status()
	assert.False(t, st.Open)
	assert.False(t, st.Speaking)
}

func TestDropOpensThenClosesMouth(t *testing.T) {
	a, clock, _ := loaded(t)
	bounds := hittest.Rect{Width: 100, Height: 100}

	assert.False(t, a.Drop(hittest.Point{X: 5, Y: 5}, bounds))
	require.True(t, a.Drop(hittest.Point{X: 50, Y: 60}, bounds))
	assert.True(t, a.Status().Open)

	clock.Advance(500 * time.Millisecond)
	a.Tick()
	assert.True(t, a.Status().Open)

	clock.Advance(500 * time.Millisecond)
	a.Tick()
	assert.False(t, a.Status().Open)
}

func TestStaleSwapIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	loader := &fakeLoader{gates: map[string]chan struct{}{"models/slow.glb": gate}}
	a, _, _ := newAvatar(t, loader)

	done := make(chan error)
	go func() { done <- a.Swap(context.Background(), "models/slow.glb") }()
	require.Eventually(t, func() bool { return a.Status().State == avatar.StateLoading }, time.Second, time.Millisecond)

	require.NoError(t, a.Swap(context.Background(), "models/fast.glb"))
	close(gate)
	require.NoError(t, <-done)

	a.Render(func(g *scene.Graph, _ *materials.Registry) {
		require.NotNil(t, g)
		assert.Equal(t, "models/fast.glb", g.Name)
	})
	assert.Equal(t, "models/fast.glb", a.Status().Asset)
}

func TestScenes(t *testing.T) {
	a, _, sink := loaded(t)
	_, ok := a.Scene()
	assert.False(t, ok)

	a.RestoreScene(&prefs.SceneAsset{Name: "Beach"})
	assert.Empty(t, sink.patches)

	a.SetScene(prefs.SceneAsset{Name: "Space", Img: "space.webp"})
	s, ok := a.Scene()
	require.True(t, ok)
	assert.Equal(t, "Space", s.Name)
	require.Len(t, sink.patches, 1)
	assert.Equal(t, []prefs.Field{prefs.FieldCurrentScene}, sink.patches[0].Fields())
	assert.Equal(t, "Space", a.Status().Scene)
}

func TestApplyColorsDoesNotForward(t *testing.T) {
	a, _, sink := loaded(t)
	n := a.ApplyColors([]avatar.MeshColor{
		{Name: "Body", Color: "#112233"},
		{Name: "Ghost", Color: "#445566"},
		{Name: "Mouth_001", Color: "bad"},
	})
	assert.Equal(t, 1, n)
	c, _ := a.MeshColor("Body")
	assert.Equal(t, "#112233", c)
	assert.Empty(t, sink.patches)
}

func TestResponsiveScale(t *testing.T) {
	assert.Equal(t, float32(150), avatar.ResponsiveScale(avatar.Size{Width: 800, Height: 600}))
	assert.Equal(t, float32(1), avatar.ResponsiveScale(avatar.Size{}))
	a, _, _ := loaded(t)
	a.Resize(avatar.Size{Width: 400, Height: 1000})
	assert.Equal(t, float32(100), a.Scale())
}
