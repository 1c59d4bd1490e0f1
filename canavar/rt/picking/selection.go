package picking

import (
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/pkg/errors"
)

// Depth is how far a click resolves: the node only, or down to a mesh or a vertex of it.
type Depth int

const (
	NodeOnly Depth = iota
	IncludeMesh
	IncludeVertex
)

func (d Depth) String() string {
	switch d {
	case NodeOnly:
		return "node"
	case IncludeMesh:
		return "mesh"
	case IncludeVertex:
		return "vertex"
	default:
		return "unknown"
	}
}

// ParseDepth is the inverse of Depth.String.
func ParseDepth(s string) (Depth, error) {
	for d := NodeOnly; d <= IncludeVertex; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return NodeOnly, errors.Wrapf(ErrDepth, "parse %q", s)
}

// Selection is the editor's current pick. Deeper state only exists while every shallower
// level is set: a mesh needs a selected model node and a vertex needs a selected mesh.
// Changing a level resets every level below it.
type Selection struct {
	depth  Depth
	node   *scene.Node
	mesh   int
	vertex int
}

func NewSelection() *Selection {
	return &Selection{mesh: -1, vertex: -1}
}

func (s *Selection) Depth() Depth { return s.depth }

// Node returns the selected node, or nil.
func (s *Selection) Node() *scene.Node { return s.node }

func (s *Selection) NodeID() scene.NodeID {
	if s.node == nil {
		return scene.NoNode
	}
	return s.node.ID()
}

// Mesh returns the selected mesh id, or -1.
func (s *Selection) Mesh() int { return s.mesh }

// Vertex returns the selected vertex index, or -1.
func (s *Selection) Vertex() int { return s.vertex }

func (s *Selection) hasModel() bool {
	return s.node != nil && s.node.Has(scene.CapModel)
}

// SetDepth moves the state machine. Going deeper requires the shallower level to be set;
// going shallower clears the levels that are left.
func (s *Selection) SetDepth(d Depth) error {
	if d < NodeOnly || d > IncludeVertex {
		return errors.Wrapf(ErrDepth, "unknown depth %d", d)
	}
	if d == s.depth {
		return nil
	}
	if d > s.depth {
		if d >= IncludeMesh && !s.hasModel() {
			return errors.Wrapf(ErrNoNodeSelected, "cannot enter %s selection", d)
		}
		if d == IncludeVertex && s.mesh < 0 {
			return errors.Wrapf(ErrNoMeshSelected, "cannot enter %s selection", d)
		}
	}
	if d < IncludeMesh {
		s.mesh = -1
	}
	s.vertex = -1
	s.depth = d
	return nil
}

// SelectNode selects n, or clears the selection when n is nil. A different node resets the
// mesh and vertex; depth falls back to what the new node supports.
func (s *Selection) SelectNode(n *scene.Node) {
	if n == s.node {
		return
	}
	s.node = n
	s.mesh = -1
	s.vertex = -1
	switch {
	case !s.hasModel():
		s.depth = NodeOnly
	case s.depth == IncludeVertex:
		s.depth = IncludeMesh
	}
}

func (s *Selection) ClearNode() { s.SelectNode(nil) }

// SelectMesh selects a mesh of the selected model node. It resets the vertex.
func (s *Selection) SelectMesh(meshID int) error {
	if s.depth < IncludeMesh {
		return errors.Wrapf(ErrDepth, "mesh pick at %s depth", s.depth)
	}
	if !s.hasModel() {
		return ErrNoNodeSelected
	}
	if _, ok := s.node.Model().MeshByID(meshID); !ok {
		return errors.Wrapf(ErrUnknownMesh, "mesh %d on %q", meshID, s.node.Name())
	}
	if meshID != s.mesh {
		s.mesh = meshID
		s.vertex = -1
	}
	return nil
}

// ClearMesh drops the mesh and vertex, leaving vertex depth if it was active.
func (s *Selection) ClearMesh() {
	s.mesh = -1
	s.vertex = -1
	if s.depth == IncludeVertex {
		s.depth = IncludeMesh
	}
}

func (s *Selection) SelectVertex(index int) error {
	if s.depth < IncludeVertex {
		return errors.Wrapf(ErrDepth, "vertex pick at %s depth", s.depth)
	}
	if s.mesh < 0 {
		return ErrNoMeshSelected
	}
	mesh, _ := s.node.Model().MeshByID(s.mesh)
	if index < 0 || index >= mesh.VertexCount {
		return errors.Wrapf(ErrVertexOutOfRange, "vertex %d of %d", index, mesh.VertexCount)
	}
	s.vertex = index
	return nil
}

func (s *Selection) ClearVertex() { s.vertex = -1 }

// Validate drops whatever no longer exists in reg. It reports whether the selection changed.
func (s *Selection) Validate(reg scene.Registry) bool {
	if s.node == nil {
		return false
	}
	if n, ok := reg.Lookup(s.node.ID()); !ok || n != s.node {
		s.ClearNode()
		return true
	}
	if s.mesh >= 0 {
		mesh, ok := s.node.Model().MeshByID(s.mesh)
		if !ok {
			s.ClearMesh()
			return true
		}
		if s.vertex >= mesh.VertexCount {
			s.vertex = -1
			return true
		}
	}
	return false
}
