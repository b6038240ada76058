package prefs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/04shr/petzy/internal/docstore"
	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingStore wraps a memory store, records update paths and can be told to fail.
type recordingStore struct {
	*docstore.Memory
	mu      sync.Mutex
	updates [][]string
	fail    error
	gate    chan struct{}
}

func newRecording() *recordingStore {
	return &recordingStore{Memory: docstore.NewMemory()}
}

func (r *recordingStore) Update(ctx context.Context, collection, id string, fields map[string]json.RawMessage) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	var paths []string
	for k := range fields {
		paths = append(paths, k)
	}
	r.updates = append(r.updates, paths)
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.Memory.Update(ctx, collection, id, fields)
}

func (r *recordingStore) paths() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.updates...)
}

func wait(t *testing.T, p *prefs.Pending) prefs.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestOpenCreatesDefaultDocument(t *testing.T) {
	docs := docstore.NewMemory()
	s := prefs.New(docs, session.New("Ash"), nil)
	defer s.Close()

	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, prefs.Default(), s.Snapshot())

	raw, err := docs.Get(context.Background(), prefs.Collection, "ash")
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(raw, "preferences.meshes").IsArray())
	assert.Equal(t, gjson.Null, gjson.GetBytes(raw, "preferences.currentScene").Type)
}

func TestOpenReplacesLocalState(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	require.NoError(t, docs.Set(ctx, prefs.Collection, "ash", json.RawMessage(`{
		"username": "Ash",
		"preferences": {
			"meshes": [{"name": "Body", "color": "#ff0000"}],
			"currentScene": {"name": "Beach", "img": "beach.png"},
			"stats": {"feed": 3}
		}
	}`)))

	s := prefs.New(docs, session.New("ASH "), nil)
	defer s.Close()
	require.NoError(t, s.Open(ctx))

	doc := s.Snapshot()
	color, ok := doc.MeshColor("Body")
	assert.True(t, ok)
	assert.Equal(t, "#ff0000", color)
	require.NotNil(t, doc.CurrentScene)
	assert.Equal(t, "Beach", doc.CurrentScene.Name)
	assert.Equal(t, 3.0, doc.Stats["feed"])
	assert.NotNil(t, doc.DailyLog)
}

func TestOpenAddsMissingPreferencesObject(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	require.NoError(t, docs.Set(ctx, prefs.Collection, "ash", json.RawMessage(`{"username":"Ash","petName":"Rex"}`)))

	s := prefs.New(docs, session.New("ash"), nil)
	defer s.Close()
	require.NoError(t, s.Open(ctx))

	raw, err := docs.Get(ctx, prefs.Collection, "ash")
	require.NoError(t, err)
	assert.Equal(t, "Rex", gjson.GetBytes(raw, "petName").String())
	assert.True(t, gjson.GetBytes(raw, "preferences.stats").IsObject())
}

func TestUpdateMergesLocallyBeforePersisting(t *testing.T) {
	docs := newRecording()
	docs.gate = make(chan struct{})
	s := prefs.New(docs, session.New("ash"), nil)
	defer s.Close()

	p := s.Update(prefs.Patch{}.WithMeshes([]prefs.MeshColor{{Name: "Body", Color: "#00ff00"}}))
	color, ok := s.Snapshot().MeshColor("Body")
	assert.True(t, ok, "local state must change before the write lands")
	assert.Equal(t, "#00ff00", color)

	select {
	case <-p.Done():
		t.Fatal("write resolved before the store answered")
	default:
	}
	close(docs.gate)
	assert.True(t, wait(t, p).OK)
}

func TestUpdateWritesOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	docs := newRecording()
	s := prefs.New(docs, session.New("ash"), nil)
	defer s.Close()
	require.NoError(t, s.Open(ctx))

	res := wait(t, s.Update(prefs.Patch{}.WithScene(&prefs.SceneAsset{Name: "Forest", Img: "forest.jpg"})))
	require.True(t, res.OK)
	assert.Equal(t, [][]string{{"preferences.currentScene"}}, docs.paths())

	raw, err := docs.Get(ctx, prefs.Collection, "ash")
	require.NoError(t, err)
	assert.Equal(t, "forest.jpg", gjson.GetBytes(raw, "preferences.currentScene.img").String())
	assert.True(t, gjson.GetBytes(raw, "preferences.meshes").IsArray(), "untouched fields stay")
}

func TestWritesPersistInSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	docs := newRecording()
	s := prefs.New(docs, session.New("ash"), nil)
	require.NoError(t, s.Open(ctx))

	var last *prefs.Pending
	for _, c := range []string{"#000001", "#000002", "#000003"} {
		last = s.Update(prefs.Patch{}.WithMeshes([]prefs.MeshColor{{Name: "Body", Color: c}}))
	}
	require.True(t, wait(t, last).OK)
	s.Close()

	raw, err := docs.Get(ctx, prefs.Collection, "ash")
	require.NoError(t, err)
	assert.Equal(t, "#000003", gjson.GetBytes(raw, "preferences.meshes.0.color").String())
	assert.Len(t, docs.paths(), 3)
}

func TestFailedWriteIsReportedNotRolledBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	docs := newRecording()
	docs.fail = errors.New("offline")
	s := prefs.New(docs, session.New("ash"), zap.New(core))
	defer s.Close()

	res := wait(t, s.Update(prefs.Patch{}.WithLastFed("2025-03-01T12:00:00Z")))
	assert.False(t, res.OK)
	assert.Equal(t, prefs.ReasonStoreError, res.Reason)
	assert.ErrorContains(t, res.Err, "offline")

	doc := s.Snapshot()
	require.NotNil(t, doc.LastFed)
	assert.Equal(t, "2025-03-01T12:00:00Z", *doc.LastFed)
	assert.Equal(t, 1, logs.FilterMessage("preference write failed").Len())
}

func TestUpdateCreatesMissingDocument(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := prefs.New(docs, session.New("ash"), nil)
	defer s.Close()

	res := wait(t, s.Update(prefs.Patch{}.WithStats(map[string]float64{"play": 1})))
	require.True(t, res.OK)

	raw, err := docs.Get(ctx, prefs.Collection, "ash")
	require.NoError(t, err)
	assert.Equal(t, 1.0, gjson.GetBytes(raw, "preferences.stats.play").Float())
	assert.True(t, gjson.GetBytes(raw, "preferences.meshes").IsArray())
}

func TestAnonymousUpdatesStayLocal(t *testing.T) {
	docs := newRecording()
	s := prefs.New(docs, session.Anonymous(), nil)
	defer s.Close()
	require.NoError(t, s.Open(context.Background()))

	res := wait(t, s.Update(prefs.Patch{}.WithMeshes([]prefs.MeshColor{{Name: "Ears", Color: "#123456"}})))
	assert.False(t, res.OK)
	assert.Equal(t, prefs.ReasonNoUser, res.Reason)
	_, ok := s.Snapshot().MeshColor("Ears")
	assert.True(t, ok)
	assert.Empty(t, docs.paths())
}

func TestUpdateAfterClose(t *testing.T) {
	s := prefs.New(docstore.NewMemory(), session.New("ash"), nil)
	s.Close()
	res := wait(t, s.Update(prefs.Patch{}.WithLastPlayedGame("now")))
	assert.Equal(t, prefs.ReasonClosed, res.Reason)
}

func TestPatchFieldsAreDeduplicated(t *testing.T) {
	p := prefs.Patch{}.WithMeshes(nil).WithMeshes(nil).WithScene(nil)
	assert.Equal(t, []prefs.Field{prefs.FieldMeshes, prefs.FieldCurrentScene}, p.Fields())
	assert.True(t, prefs.Patch{}.Empty())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := prefs.New(docstore.NewMemory(), session.Anonymous(), nil)
	defer s.Close()
	s.Update(prefs.Patch{}.WithStats(map[string]float64{"feed": 1}))

	snap := s.Snapshot()
	snap.Stats["feed"] = 99
	assert.Equal(t, 1.0, s.Snapshot().Stats["feed"])
}

func TestInterleavedFieldsDoNotClobberEachOther(t *testing.T) {
	ctx := context.Background()
	docs := newRecording()
	s := prefs.New(docs, session.New("ash"), nil)
	require.NoError(t, s.Open(ctx))

	s.Update(prefs.Patch{}.WithMeshes([]prefs.MeshColor{{Name: "Body", Color: "#111111"}}))
	s.Update(prefs.Patch{}.WithScene(&prefs.SceneAsset{Name: "Beach", Img: "scenes/beach.jpg"}))
	last := s.Update(prefs.Patch{}.WithMeshes([]prefs.MeshColor{{Name: "Body", Color: "#222222"}}))
	require.True(t, wait(t, last).OK)
	s.Close()

	raw, err := docs.Get(ctx, prefs.Collection, "ash")
	require.NoError(t, err)
	assert.Equal(t, "#222222", gjson.GetBytes(raw, "preferences.meshes.0.color").String())
	assert.Equal(t, "Beach", gjson.GetBytes(raw, "preferences.currentScene.name").String())

	doc := s.Snapshot()
	require.NotNil(t, doc.CurrentScene)
	assert.Equal(t, "Beach", doc.CurrentScene.Name)
}
