package picking

import (
	"image"

	"github.com/canavar/canavar/canavar/rt/core"
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/pkg/errors"
)

const DefaultVertexRadius = 5

// Result is the outcome of one pick. On failure every id is -1 and Err says why.
type Result struct {
	Success  bool
	NodeID   scene.NodeID
	MeshID   int
	VertexID int
	Err      error
}

func miss(err error) Result {
	return Result{NodeID: scene.NoNode, MeshID: -1, VertexID: -1, Err: err}
}

// Resolver maps screen pixels to scene identities through the identity targets.
type Resolver struct {
	readback     Readback
	registry     scene.Registry
	selection    *Selection
	log          core.Logger
	vertexRadius int
}

func NewResolver(rb Readback, reg scene.Registry, sel *Selection, log core.Logger) *Resolver {
	if sel == nil {
		sel = NewSelection()
	}
	return &Resolver{
		readback:     rb,
		registry:     reg,
		selection:    sel,
		log:          core.OrNop(log),
		vertexRadius: DefaultVertexRadius,
	}
}

func (r *Resolver) Selection() *Selection { return r.selection }

func (r *Resolver) SetSelectionDepth(d Depth) error {
	return r.selection.SetDepth(d)
}

// SetVertexRadius sets the half size in pixels of the square searched for vertex hits.
func (r *Resolver) SetVertexRadius(px int) {
	if px < 0 {
		px = 0
	}
	r.vertexRadius = px
}

func (r *Resolver) VertexRadius() int { return r.vertexRadius }

// Resolve identifies what is drawn at (x, y) at the current selection depth. It never
// panics; failures come back as a Result with Success false.
func (r *Resolver) Resolve(x, y int) Result {
	res, _ := r.resolve(x, y)
	return res
}

// resolve also returns the decoded identity, which has no node when nothing was read.
func (r *Resolver) resolve(x, y int) (Result, Identity) {
	none := Identity{Node: scene.NoNode, Mesh: -1, Vertex: -1}
	if r.readback == nil {
		return miss(errors.Wrap(ErrInvalidPickTarget, "no identity target")), none
	}
	bounds := r.readback.Bounds()
	if !image.Pt(x, y).In(bounds) {
		return miss(errors.Wrapf(ErrInvalidPickTarget, "(%d,%d) outside %v", x, y, bounds)), none
	}

	depth := r.selection.Depth()
	var (
		id  Identity
		err error
	)
	if depth == IncludeVertex {
		id, err = r.readVertex(x, y, bounds)
	} else {
		id, err = r.readPixel(x, y)
	}
	if err != nil {
		return miss(err), none
	}

	res, err := r.validate(id, depth)
	if err != nil {
		r.log.Debugf("picking: (%d,%d): %v", x, y, err)
		return miss(err), id
	}
	return res, id
}

func (r *Resolver) readPixel(x, y int) (Identity, error) {
	region, err := r.readback.ReadRegion(TargetMesh, image.Rect(x, y, x+1, y+1))
	if err != nil {
		return Identity{}, errors.Wrap(err, "read mesh identity")
	}
	id, ok := texelAt(region, 0)
	if !ok {
		return Identity{}, ErrNoHit
	}
	return id, nil
}

// readVertex searches the square around (x, y) for the vertex hit nearest to it. Vertices
// are drawn as points so the exact pixel is rarely covered.
func (r *Resolver) readVertex(x, y int, bounds image.Rectangle) (Identity, error) {
	rad := r.vertexRadius
	rect := image.Rect(x-rad, y-rad, x+rad+1, y+rad+1).Intersect(bounds)
	region, err := r.readback.ReadRegion(TargetVertex, rect)
	if err != nil {
		return Identity{}, errors.Wrap(err, "read vertex identity")
	}

	best := -1
	bestDist := 0
	w := rect.Dx()
	for i := 0; i < len(region)/TexelSize; i++ {
		if rawNode(region[i*TexelSize:]) == 0 {
			continue
		}
		dx := rect.Min.X + i%w - x
		dy := rect.Min.Y + i/w - y
		d := dx*dx + dy*dy
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Identity{}, ErrNoHit
	}
	id, _ := texelAt(region, best)
	if id.Vertex < 0 {
		return Identity{}, ErrNoHit
	}
	return id, nil
}

// validate checks a decoded identity against the live registry and trims it to depth.
func (r *Resolver) validate(id Identity, depth Depth) (Result, error) {
	node, ok := r.registry.Lookup(id.Node)
	if !ok {
		return Result{}, errors.Wrapf(ErrStaleSelection, "node %d", id.Node)
	}
	if !node.Selectable() {
		return Result{}, ErrNoHit
	}
	res := Result{Success: true, NodeID: id.Node, MeshID: -1, VertexID: -1}
	if depth == NodeOnly {
		return res, nil
	}

	if id.Mesh < 0 || node.Model() == nil {
		return Result{}, errors.Wrapf(ErrNoHit, "node %d has no mesh here", id.Node)
	}
	mesh, ok := node.Model().MeshByID(id.Mesh)
	if !ok {
		return Result{}, errors.Wrapf(ErrStaleSelection, "mesh %d of node %d", id.Mesh, id.Node)
	}
	res.MeshID = id.Mesh
	if depth == IncludeMesh {
		return res, nil
	}

	if id.Vertex >= mesh.VertexCount {
		return Result{}, errors.Wrapf(ErrStaleSelection, "vertex %d of mesh %d", id.Vertex, id.Mesh)
	}
	res.VertexID = id.Vertex
	return res, nil
}

// Click applies a left click at (x, y) to the selection. At node depth a hit selects the
// node and a miss clears it. At mesh depth only hits on the selected node count; a hit on a
// mesh the node does not have clears the mesh. At vertex depth only hits on the selected
// node and mesh count.
func (r *Resolver) Click(x, y int) Result {
	sel := r.selection
	sel.Validate(r.registry)

	res, id := r.resolve(x, y)
	switch sel.Depth() {
	case IncludeVertex:
		if res.Success && res.NodeID == sel.NodeID() && res.MeshID == sel.Mesh() {
			if err := sel.SelectVertex(res.VertexID); err != nil {
				r.log.Warnf("picking: %v", err)
			}
		}
	case IncludeMesh:
		if sel.Node() == nil || id.Node != sel.NodeID() {
			break
		}
		switch {
		case res.Success:
			if err := sel.SelectMesh(res.MeshID); err != nil {
				r.log.Warnf("picking: %v", err)
				sel.ClearMesh()
			}
		case errors.Is(res.Err, ErrStaleSelection):
			// The selected node was drawn with a mesh it no longer has.
			sel.ClearMesh()
		}
	default:
		if res.Success {
			node, _ := r.registry.Lookup(res.NodeID)
			sel.SelectNode(node)
		} else {
			sel.ClearNode()
		}
	}
	return res
}
