package docstore_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/04shr/petzy/internal/docstore"
)

func TestApplyFieldsScopedToPaths(t *testing.T) {
	doc := json.RawMessage(`{"username":"Ash","preferences":{"meshes":[],"stats":{"feed":1}}}`)
	out, err := docstore.ApplyFields(doc, map[string]json.RawMessage{
		"preferences.meshes": json.RawMessage(`[{"name":"Body","color":"#ff0000"}]`),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ash", gjson.GetBytes(out, "username").String())
	assert.Equal(t, "#ff0000", gjson.GetBytes(out, "preferences.meshes.0.color").String())
	assert.Equal(t, int64(1), gjson.GetBytes(out, "preferences.stats.feed").Int(), "sibling field must survive")
}

func TestApplyFieldsCreatesMissingParents(t *testing.T) {
	out, err := docstore.ApplyFields(nil, map[string]json.RawMessage{
		"preferences.currentScene": json.RawMessage(`{"name":"Beach","img":"beach.png"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Beach", gjson.GetBytes(out, "preferences.currentScene.name").String())
}

func TestApplyFieldsRejectsInvalidValue(t *testing.T) {
	_, err := docstore.ApplyFields(json.RawMessage(`{}`), map[string]json.RawMessage{
		"a": json.RawMessage(`{not json`),
	})
	assert.Error(t, err)
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()

	_, err := m.Get(ctx, "users", "ash")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	err = m.Update(ctx, "users", "ash", map[string]json.RawMessage{"petName": json.RawMessage(`"Rex"`)})
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, m.Set(ctx, "users", "ash", json.RawMessage(`{"username":"Ash"}`)))
	require.NoError(t, m.Update(ctx, "users", "ash", map[string]json.RawMessage{"petName": json.RawMessage(`"Rex"`)}))

	doc, err := m.Get(ctx, "users", "ash")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"Ash","petName":"Rex"}`, string(doc))
}

func TestMemoryValidatesKeys(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()
	assert.Error(t, m.Set(ctx, "", "ash", json.RawMessage(`{}`)))
	assert.Error(t, m.Set(ctx, "users", " ", json.RawMessage(`{}`)))
	assert.Error(t, m.Set(ctx, "users", "a/b", json.RawMessage(`{}`)))
	assert.Error(t, m.Set(ctx, "users", "ash", json.RawMessage(`nope`)))
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := docstore.NewMemory().Get(ctx, "users", "ash")
	assert.ErrorIs(t, err, context.Canceled)
}
