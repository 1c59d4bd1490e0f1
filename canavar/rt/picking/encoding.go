package picking

import (
	"encoding/binary"

	"github.com/canavar/canavar/canavar/rt/scene"
)

// Identity render targets are RGBA32Uint. R carries the node, G the mesh and B the vertex,
// each stored as id+1 so that a cleared texel (all zero) means no geometry.
const TexelSize = 16

type Target int

const (
	// TargetMesh is written by the node/mesh identity pass.
	TargetMesh Target = iota
	// TargetVertex is written by the point-sized vertex identity pass.
	TargetVertex
)

func (t Target) String() string {
	switch t {
	case TargetMesh:
		return "mesh"
	case TargetVertex:
		return "vertex"
	default:
		return "unknown"
	}
}

// Identity is what the identity pass recorded for one pixel. Absent components are -1.
type Identity struct {
	Node   scene.NodeID
	Mesh   int
	Vertex int
}

// NodeIdentity is a hit on a node drawn without mesh or vertex information.
func NodeIdentity(node scene.NodeID) Identity {
	return Identity{Node: node, Mesh: -1, Vertex: -1}
}

func encodeComponent(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v) + 1
}

func decodeComponent(v uint32) int {
	return int(v) - 1
}

func Encode(id Identity) [TexelSize]byte {
	var b [TexelSize]byte
	binary.LittleEndian.PutUint32(b[0:4], encodeComponent(int(id.Node)))
	binary.LittleEndian.PutUint32(b[4:8], encodeComponent(id.Mesh))
	binary.LittleEndian.PutUint32(b[8:12], encodeComponent(id.Vertex))
	return b
}

// Decode reads one texel. ok is false when the texel holds no node.
func Decode(texel []byte) (id Identity, ok bool) {
	if len(texel) < TexelSize {
		return NodeIdentity(scene.NoNode), false
	}
	node := binary.LittleEndian.Uint32(texel[0:4])
	if node == 0 {
		return NodeIdentity(scene.NoNode), false
	}
	return Identity{
		Node:   scene.NodeID(decodeComponent(node)),
		Mesh:   decodeComponent(binary.LittleEndian.Uint32(texel[4:8])),
		Vertex: decodeComponent(binary.LittleEndian.Uint32(texel[8:12])),
	}, true
}
