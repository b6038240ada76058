package materials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/04shr/petzy/internal/materials"
	"github.com/04shr/petzy/internal/scene"
	"github.com/04shr/petzy/internal/scene/scenetest"
)

func TestPopulateClonesSharedMaterials(t *testing.T) {
	g := scenetest.PetGraph()
	shared := g.Lookup("Mouth_001").Material

	reg := materials.NewRegistry(nil)
	reg.Populate(g)

	closed, open := g.Lookup("Mouth_001"), g.Lookup("Mouth_002")
	assert.NotSame(t, shared, closed.Material)
	assert.NotSame(t, closed.Material, open.Material)
	assert.False(t, shared.Private, "the shared asset material must stay untouched")
	assert.True(t, closed.Material.Private)
	assert.Equal(t, scene.ColorSpaceSRGB, closed.Material.ColorSpace)
}

func TestPopulateIsIdempotent(t *testing.T) {
	g := scenetest.PetGraph()
	reg := materials.NewRegistry(nil)
	reg.Populate(g)
	first := g.Lookup("Body").Material

	reg.Populate(g)
	assert.Same(t, first, g.Lookup("Body").Material)
	assert.Equal(t, 4, reg.Len())
}

func TestPopulateNamesUnnamedNodesByID(t *testing.T) {
	reg := materials.NewRegistry(nil)
	reg.Populate(scenetest.PetGraph())

	assert.Equal(t, []string{"Body", "Mouth_001", "Mouth_002", "id-accessory"}, reg.Names())
	_, ok := reg.Lookup("id-accessory")
	assert.True(t, ok)
}

func TestPopulateKeepsFirstDuplicate(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := scene.NewGraph("dup")
	a := g.Add(-1, "Paw", "a")
	a.Material = &scene.Material{Name: "m"}
	b := g.Add(-1, "Paw", "b")
	b.Material = &scene.Material{Name: "m"}

	reg := materials.NewRegistry(zap.New(core))
	reg.Populate(g)

	e, ok := reg.Lookup("Paw")
	require.True(t, ok)
	assert.Same(t, a, e.Surface)
	assert.Equal(t, 1, logs.FilterMessage("duplicate mesh name, keeping first").Len())
}

func TestEmptyRegistryFallsBack(t *testing.T) {
	reg := materials.NewRegistry(nil)

	assert.Equal(t, []string{"Body", "Ears", "Eyes", "Nose"}, reg.Names())
	assert.Equal(t, materials.Fallback, reg.Swatches())
	assert.False(t, reg.SetTarget("Body", scenetest.FurColor))
}

func TestRestoreAlwaysReturnsLoadTimeColor(t *testing.T) {
	reg := materials.NewRegistry(nil)
	reg.Populate(scenetest.PetGraph())

	for _, hex := range []string{"#ff0000", "#00ff00", "#123456"} {
		c, err := materials.ParseHex(hex)
		require.NoError(t, err)
		require.True(t, reg.SetTarget("Body", c))
	}
	got, ok := reg.Restore("Body")
	require.True(t, ok)
	assert.Equal(t, materials.Hex(scenetest.FurColor), materials.Hex(got))

	_, ok = reg.Restore("NoSuchMesh")
	assert.False(t, ok)
}

func TestClearStartsNewGeneration(t *testing.T) {
	reg := materials.NewRegistry(nil)
	reg.Populate(scenetest.PetGraph())
	gen := reg.Generation()

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
	assert.Greater(t, reg.Generation(), gen)
}

func TestHexRoundTrip(t *testing.T) {
	for _, hex := range []string{"#000000", "#ffffff", "#ff0000", "#c8a27a", "#3b2f2f"} {
		c, err := materials.ParseHex(hex)
		require.NoError(t, err)
		assert.Equal(t, hex, materials.Hex(c))
	}
	_, err := materials.ParseHex("purple")
	assert.Error(t, err)
}
