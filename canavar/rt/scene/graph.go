package scene

import (
	"fmt"

	"github.com/pkg/errors"
)

// Registry is the read side of a Graph that picking and selection validate against.
type Registry interface {
	Lookup(id NodeID) (*Node, bool)
}

// Graph owns every node of a scene and hands out stable identifiers starting at 1.
// It is not safe for concurrent use; the hierarchy is mutated on the main thread only.
type Graph struct {
	nodes  map[NodeID]*Node
	order  []*Node
	nextID NodeID
	counts map[Kind]int
}

func NewGraph() *Graph {
	return &Graph{
		nodes:  make(map[NodeID]*Node),
		nextID: 1,
		counts: make(map[Kind]int),
	}
}

// Create registers a new root node. An empty name becomes "<Kind> #<n>".
func (g *Graph) Create(kind Kind, name string) *Node {
	g.counts[kind]++
	if name == "" {
		name = fmt.Sprintf("%s #%d", kind, g.counts[kind])
	}

	n := newNode(g.nextID, kind, name)
	n.graph = g
	g.nextID++

	g.nodes[n.id] = n
	g.order = append(g.order, n)
	return n
}

// CreateModel registers a model node with the given mesh table.
func (g *Graph) CreateModel(modelName string, meshes []Mesh) *Node {
	n := g.Create(KindModel, "")
	n.model.Name = modelName
	n.model.Meshes = append([]Mesh(nil), meshes...)
	return n
}

func (g *Graph) Lookup(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Contains(n *Node) bool {
	return n != nil && n.graph == g
}

func (g *Graph) Len() int { return len(g.nodes) }

// Nodes lists registered nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Roots lists parentless nodes in creation order.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, n := range g.order {
		if n.parent == nil {
			roots = append(roots, n)
		}
	}
	return roots
}

// SetParent moves child under parent, or to the root when parent is nil.
func (g *Graph) SetParent(child, parent *Node) error {
	if !g.Contains(child) {
		return errors.Wrap(ErrUnknownNode, "set parent")
	}
	if parent == nil {
		if child.parent != nil {
			return child.parent.RemoveChild(child)
		}
		return nil
	}
	if !g.Contains(parent) {
		return errors.Wrap(ErrUnknownNode, "set parent")
	}
	return parent.AddChild(child)
}

// Remove unregisters n and its whole subtree, detaching n from its parent.
// The removed ids are returned in depth-first order starting with n.
func (g *Graph) Remove(n *Node) []NodeID {
	if !g.Contains(n) {
		return nil
	}
	if n.parent != nil {
		n.parent.detach(n)
	}

	var removed []NodeID
	var drop func(*Node)
	drop = func(x *Node) {
		removed = append(removed, x.id)
		delete(g.nodes, x.id)
		x.graph = nil
		for _, c := range x.children {
			drop(c)
		}
		x.children = nil
		x.parent = nil
	}
	drop(n)

	kept := g.order[:0]
	for _, x := range g.order {
		if x.graph == g {
			kept = append(kept, x)
		}
	}
	for i := len(kept); i < len(g.order); i++ {
		g.order[i] = nil
	}
	g.order = kept
	return removed
}

// Walk visits every node depth first, roots in creation order and children in list order.
// Returning false from fn skips the node's subtree.
func (g *Graph) Walk(fn func(n *Node, depth int) bool) {
	var visit func(*Node, int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	for _, r := range g.Roots() {
		visit(r, 0)
	}
}
