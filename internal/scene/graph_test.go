package scene_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/04shr/petzy/internal/scene"
	"github.com/04shr/petzy/internal/scene/scenetest"
)

func TestDecodeFlattensDefaultScene(t *testing.T) {
	g, err := scene.Decode("pet.gltf", []byte(scenetest.PetGLTF))
	require.NoError(t, err)

	require.Equal(t, 5, g.Len())
	var names []string
	g.Traverse(func(n *scene.Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"Pet", "Body", "Mouth_001", "Mouth_002", ""}, names)

	body := g.Lookup("Body")
	require.NotNil(t, body)
	require.NotNil(t, body.Material)
	assert.Equal(t, "Fur", body.Material.Name)
	assert.InDelta(t, 0.25, body.Material.Color.G, 1e-9)
	assert.True(t, body.Visible)

	// Both mouth poses reference the same shared material.
	assert.Same(t, g.Lookup("Mouth_001").Material, g.Lookup("Mouth_002").Material)
	assert.Nil(t, g.Lookup("Pet").Material)
	assert.Nil(t, g.Lookup("NoSuchNode"))
}

func TestDecodeStableIDs(t *testing.T) {
	a, err := scene.Decode("pet.gltf", []byte(scenetest.PetGLTF))
	require.NoError(t, err)
	b, err := scene.Decode("pet.gltf", []byte(scenetest.PetGLTF))
	require.NoError(t, err)

	require.NotEmpty(t, a.Nodes[4].ID)
	assert.Equal(t, a.Nodes[4].ID, b.Nodes[4].ID)
	assert.NotEqual(t, a.Nodes[3].ID, a.Nodes[4].ID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := scene.Decode("broken.glb", []byte("not a model"))
	assert.Error(t, err)
}

func TestInstanceDoesNotShareNodes(t *testing.T) {
	g := scenetest.PetGraph()
	inst := g.Instance()

	inst.Lookup("Mouth_002").Visible = false
	assert.True(t, g.Lookup("Mouth_002").Visible)
	assert.Same(t, g.Lookup("Body").Material, inst.Lookup("Body").Material)
}

func TestRenderSlotsFollowSourceOrder(t *testing.T) {
	g := scenetest.PetGraph()
	slots := g.RenderSlots()
	require.Len(t, slots, 4)
	assert.Equal(t, "Body", slots[0].Name)
	assert.Equal(t, "Mouth_001", slots[1].Name)
	assert.Equal(t, "Mouth_002", slots[2].Name)
	assert.Equal(t, "", slots[3].Name)
}

func TestShownFollowsAncestors(t *testing.T) {
	g := scenetest.PetGraph()
	body := g.Lookup("Body")
	assert.True(t, g.Shown(body))

	g.Lookup("Pet").Visible = false
	assert.False(t, g.Shown(body))

	g.Lookup("Pet").Visible = true
	body.Visible = false
	assert.False(t, g.Shown(body))
	assert.False(t, g.Shown(nil))
}
