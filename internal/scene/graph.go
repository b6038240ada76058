package scene

import (
	"cmp"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorSpace is the encoding a material's color is written out in.
type ColorSpace int

const (
	ColorSpaceLinear ColorSpace = iota
	ColorSpaceSRGB
)

// Material is a paintable surface description. Color is held in the renderer's working
// space (linear RGB); Base is the color the material had when it was cloned and is never
// written after that.
type Material struct {
	Name        string
	Color       colorful.Color
	Base        colorful.Color
	ColorSpace  ColorSpace
	NeedsUpdate bool
	// Private marks a material that was cloned for a single node. Shared materials from a
	// cached asset never carry it.
	Private bool
}

// Node is one entry of the scene arena. Parent and Children are arena indices; -1 means root.
// Source is the node's index in the asset file and drives render-slot ordering.
type Node struct {
	Index      int
	Source     int
	ID         string
	Name       string
	Parent     int
	Children   []int
	Visible    bool
	Material   *Material
	Primitives int
}

// Graph is a loaded avatar scene flattened into an arena. Name lookups go through a registry
// built once when the graph is assembled; nothing re-traverses the hierarchy per call.
type Graph struct {
	Name   string
	Nodes  []*Node
	Roots  []int
	byName map[string]int
}

// NewGraph returns an empty graph for the asset called name.
func NewGraph(name string) *Graph {
	return &Graph{Name: name, byName: make(map[string]int)}
}

// Add appends a node under parent (-1 for a root) and returns it. The first node registered
// under a given name wins name lookups.
func (g *Graph) Add(parent int, name, id string) *Node {
	n := &Node{
		Index:   len(g.Nodes),
		Source:  len(g.Nodes),
		ID:      id,
		Name:    name,
		Parent:  parent,
		Visible: true,
	}
	g.Nodes = append(g.Nodes, n)
	if parent < 0 {
		g.Roots = append(g.Roots, n.Index)
	} else {
		p := g.Nodes[parent]
		p.Children = append(p.Children, n.Index)
	}
	if name != "" {
		if _, taken := g.byName[name]; !taken {
			g.byName[name] = n.Index
		}
	}
	return n
}

// Lookup returns the node registered under name, or nil.
func (g *Graph) Lookup(name string) *Node {
	if g == nil {
		return nil
	}
	i, ok := g.byName[name]
	if !ok {
		return nil
	}
	return g.Nodes[i]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// Traverse visits every node depth-first, parents before children, roots in order.
func (g *Graph) Traverse(fn func(*Node)) {
	if g == nil {
		return
	}
	var walk func(i int)
	walk = func(i int) {
		n := g.Nodes[i]
		fn(n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range g.Roots {
		walk(r)
	}
}

// Instance returns a copy of the graph whose nodes can be mutated (visibility, material
// assignment) without touching g. Materials stay shared until a registry clones them.
func (g *Graph) Instance() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Name:   g.Name,
		Nodes:  make([]*Node, len(g.Nodes)),
		Roots:  append([]int(nil), g.Roots...),
		byName: make(map[string]int, len(g.byName)),
	}
	for i, n := range g.Nodes {
		c := *n
		c.Children = append([]int(nil), n.Children...)
		out.Nodes[i] = &c
	}
	for k, v := range g.byName {
		out.byName[k] = v
	}
	return out
}

// RenderSlots lists paintable nodes in asset order, one slot per mesh primitive. This matches
// the order in which the viewer's model loader emits meshes.
func (g *Graph) RenderSlots() []*Node {
	if g == nil {
		return nil
	}
	ordered := make([]*Node, len(g.Nodes))
	copy(ordered, g.Nodes)
	slices.SortStableFunc(ordered, func(a, b *Node) int { return cmp.Compare(a.Source, b.Source) })
	var slots []*Node
	for _, n := range ordered {
		for p := 0; p < n.Primitives; p++ {
			slots = append(slots, n)
		}
	}
	return slots
}

// Shown reports whether n and every ancestor are visible.
func (g *Graph) Shown(n *Node) bool {
	for n != nil {
		if !n.Visible {
			return false
		}
		if n.Parent < 0 {
			return true
		}
		n = g.Nodes[n.Parent]
	}
	return false
}
