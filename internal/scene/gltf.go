package scene

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/qmuntal/gltf"
)

// defaultMaterialName is used for primitives that reference no material.
const defaultMaterialName = "default"

// Decode parses a glTF or GLB asset and flattens its default scene into a Graph.
// Only the node hierarchy and base colors are kept; geometry stays with the renderer.
// Buffers must be embedded (GLB or data URIs).
func Decode(name string, data []byte) (*Graph, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	shared := make([]*Material, len(doc.Materials))
	for i, m := range doc.Materials {
		shared[i] = materialFrom(m)
	}
	var fallback *Material

	g := NewGraph(name)
	var add func(parent, src int) error
	add = func(parent, src int) error {
		if src < 0 || src >= len(doc.Nodes) {
			return fmt.Errorf("decode %s: node index %d out of range", name, src)
		}
		gn := doc.Nodes[src]
		n := g.Add(parent, gn.Name, stableID(name, src))
		n.Source = src
		if gn.Mesh != nil && *gn.Mesh >= 0 && *gn.Mesh < len(doc.Meshes) {
			mesh := doc.Meshes[*gn.Mesh]
			n.Primitives = len(mesh.Primitives)
			for _, p := range mesh.Primitives {
				if p.Material != nil && *p.Material >= 0 && *p.Material < len(shared) {
					n.Material = shared[*p.Material]
					break
				}
			}
			if n.Material == nil && n.Primitives > 0 {
				if fallback == nil {
					fallback = &Material{Name: defaultMaterialName, Color: colorful.Color{R: 1, G: 1, B: 1}}
				}
				n.Material = fallback
			}
		}
		for _, c := range gn.Children {
			if err := add(n.Index, c); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range sceneRoots(doc) {
		if err := add(-1, root); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// sceneRoots returns the root node indices of the document's default scene. Documents
// without scenes fall back to every node that is nobody's child.
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// materialFrom converts a glTF material. Base color factors are already linear.
func materialFrom(m *gltf.Material) *Material {
	out := &Material{Name: m.Name, Color: colorful.Color{R: 1, G: 1, B: 1}}
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		f := pbr.BaseColorFactor
		out.Color = colorful.Color{R: f[0], G: f[1], B: f[2]}
	}
	return out
}

// stableID derives an id for a node that is the same every time the same asset is loaded,
// so saved customizations of unnamed surfaces survive a reload.
func stableID(asset string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#node/%d", asset, index))).String()
}
