// Package scenetest holds a small avatar asset shared by tests across packages.
package scenetest

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/04shr/petzy/internal/scene"
)

// PetGLTF is a minimal glTF document: a root with a body, the two mouth poses sharing one
// material, and an unnamed accessory. Accessors carry no buffer views so no binary data is needed.
const PetGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "Pet", "children": [1, 2, 3, 4]},
    {"name": "Body", "mesh": 0},
    {"name": "Mouth_001", "mesh": 1},
    {"name": "Mouth_002", "mesh": 1},
    {"mesh": 0}
  ],
  "meshes": [
    {"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]},
    {"primitives": [{"attributes": {"POSITION": 0}, "material": 1}]}
  ],
  "materials": [
    {"name": "Fur", "pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.25, 0.1, 1]}},
    {"name": "Lip"}
  ],
  "accessors": [{"componentType": 5126, "count": 3, "type": "VEC3"}]
}`

// FurColor is the linear base color of the "Fur" material in PetGLTF.
var FurColor = colorful.Color{R: 0.5, G: 0.25, B: 0.1}

// PetGraph builds the same hierarchy as PetGLTF without going through the decoder.
func PetGraph() *scene.Graph {
	fur := &scene.Material{Name: "Fur", Color: FurColor}
	lip := &scene.Material{Name: "Lip", Color: colorful.Color{R: 1, G: 1, B: 1}}

	g := scene.NewGraph("pet.gltf")
	root := g.Add(-1, "Pet", "id-pet")
	body := g.Add(root.Index, "Body", "id-body")
	body.Material, body.Primitives = fur, 1
	closed := g.Add(root.Index, "Mouth_001", "id-mouth-closed")
	closed.Material, closed.Primitives = lip, 1
	open := g.Add(root.Index, "Mouth_002", "id-mouth-open")
	open.Material, open.Primitives = lip, 1
	extra := g.Add(root.Index, "", "id-accessory")
	extra.Material, extra.Primitives = fur, 1
	return g
}
