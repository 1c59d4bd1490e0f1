package scene

import (
	"github.com/canavar/canavar/canavar/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type NodeID int

// NoNode is the identifier of a node that is not registered in any Graph.
const NoNode NodeID = -1

// Node is a transform node: a local position/rotation/scale relative to its parent.
// The parent link is a back reference; a node owns its children.
type Node struct {
	id         NodeID
	uuid       uuid.UUID
	name       string
	kind       Kind
	selectable bool
	graph      *Graph

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	parent   *Node
	children []*Node

	model    *Model
	material *Material
	light    *Light
	camera   *core.CameraState
	emitter  *Emitter

	haze        *Haze
	sky         *Sky
	sun         *Sun
	nozzle      *NozzleEffect
	firecracker *FirecrackerEffect
}

// NewNode returns an unregistered dummy node with an identity transform.
func NewNode(name string) *Node {
	return newNode(NoNode, KindDummy, name)
}

func newNode(id NodeID, kind Kind, name string) *Node {
	n := &Node{
		id:         id,
		uuid:       uuid.New(),
		name:       name,
		kind:       kind,
		selectable: kind != KindTerrain,
		position:   mgl32.Vec3{0, 0, 0},
		rotation:   mgl32.QuatIdent(),
		scale:      mgl32.Vec3{1, 1, 1},
	}
	n.attachCapabilities()
	return n
}

func (n *Node) ID() NodeID           { return n.id }
func (n *Node) UUID() uuid.UUID      { return n.uuid }
func (n *Node) Kind() Kind           { return n.kind }
func (n *Node) Name() string         { return n.name }
func (n *Node) SetName(name string)  { n.name = name }
func (n *Node) Selectable() bool     { return n.selectable }
func (n *Node) SetSelectable(b bool) { n.selectable = b }

func (n *Node) Position() mgl32.Vec3     { return n.position }
func (n *Node) SetPosition(p mgl32.Vec3) { n.position = p }
func (n *Node) Rotation() mgl32.Quat     { return n.rotation }
func (n *Node) SetRotation(q mgl32.Quat) { n.rotation = q }
func (n *Node) Scale() mgl32.Vec3        { return n.scale }
func (n *Node) SetScale(s mgl32.Vec3)    { n.scale = s }

// Parent returns nil for a root node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// LocalTransform is T * R * S: a point is scaled, then rotated, then translated.
func (n *Node) LocalTransform() mgl32.Mat4 {
	translate := mgl32.Translate3D(n.position.X(), n.position.Y(), n.position.Z())
	rotate := n.rotation.Mat4()
	scale := mgl32.Scale3D(n.scale.X(), n.scale.Y(), n.scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (n *Node) WorldTransform() mgl32.Mat4 {
	if n.parent != nil {
		return n.parent.WorldTransform().Mul4(n.LocalTransform())
	}
	return n.LocalTransform()
}

// WorldPosition is the sum of the local positions up the parent chain. Parent rotation and
// scale do not move it; use WorldTranslation for the translation the renderer applies.
func (n *Node) WorldPosition() mgl32.Vec3 {
	if n.parent != nil {
		return n.parent.WorldPosition().Add(n.position)
	}
	return n.position
}

// WorldTranslation is the translation column of WorldTransform.
func (n *Node) WorldTranslation() mgl32.Vec3 {
	return n.WorldTransform().Col(3).Vec3()
}

func (n *Node) SetWorldPosition(p mgl32.Vec3) {
	if n.parent != nil {
		n.position = p.Sub(n.parent.WorldPosition())
		return
	}
	n.position = p
}

func (n *Node) WorldRotation() mgl32.Quat {
	if n.parent != nil {
		return n.parent.WorldRotation().Mul(n.rotation)
	}
	return n.rotation
}

func (n *Node) SetWorldRotation(q mgl32.Quat) {
	if n.parent != nil {
		n.rotation = n.parent.WorldRotation().Inverse().Mul(q)
		return
	}
	n.rotation = q
}

// IsAncestorOf reports whether n appears on other's parent chain.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// AddChild makes child a child of n, detaching it from any previous parent. The child keeps
// its local transform. Adding n to itself or to one of its descendants fails with
// ErrCyclicHierarchy and leaves the hierarchy unchanged. Both nodes must belong to the same
// Graph, or both to none; otherwise it fails with ErrUnknownNode.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	if child.graph != n.graph {
		return errors.Wrapf(ErrUnknownNode, "%q and %q belong to different graphs", child.name, n.name)
	}
	if child == n || child.IsAncestorOf(n) {
		return errors.Wrapf(ErrCyclicHierarchy, "cannot add %q under %q", child.name, n.name)
	}
	if child.parent == n {
		return nil
	}
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// RemoveChild unlinks child from n. The child becomes a root and keeps its own subtree;
// destroying nodes is Graph.Remove's job.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	if child.parent != n {
		return errors.Wrapf(ErrNotChild, "%q is not a child of %q", child.name, n.name)
	}
	n.detach(child)
	return nil
}

func (n *Node) detach(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	child.parent = nil
}
