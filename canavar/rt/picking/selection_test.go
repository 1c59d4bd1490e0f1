package picking

import (
	"testing"

	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionGraph() (*scene.Graph, *scene.Node, *scene.Node) {
	g := scene.NewGraph()
	a := g.CreateModel("a.obj", []scene.Mesh{{ID: 0, VertexCount: 3}, {ID: 4, VertexCount: 10}})
	b := g.CreateModel("b.obj", []scene.Mesh{{ID: 0, VertexCount: 6}})
	return g, a, b
}

func TestSelectionDepthRequirements(t *testing.T) {
	_, a, _ := selectionGraph()
	s := NewSelection()

	assert.ErrorIs(t, s.SetDepth(IncludeMesh), ErrNoNodeSelected)
	s.SelectNode(scene.NewNode("plain"))
	assert.ErrorIs(t, s.SetDepth(IncludeMesh), ErrNoNodeSelected, "a node without meshes")

	s.SelectNode(a)
	require.NoError(t, s.SetDepth(IncludeMesh))
	assert.ErrorIs(t, s.SetDepth(IncludeVertex), ErrNoMeshSelected)

	require.NoError(t, s.SelectMesh(4))
	require.NoError(t, s.SetDepth(IncludeVertex))
	assert.Equal(t, IncludeVertex, s.Depth())
	assert.ErrorIs(t, s.SetDepth(Depth(9)), ErrDepth)
}

func TestSelectionShallowerDepthResets(t *testing.T) {
	_, a, _ := selectionGraph()
	s := NewSelection()
	s.SelectNode(a)
	require.NoError(t, s.SetDepth(IncludeMesh))
	require.NoError(t, s.SelectMesh(4))
	require.NoError(t, s.SetDepth(IncludeVertex))
	require.NoError(t, s.SelectVertex(9))

	require.NoError(t, s.SetDepth(IncludeMesh))
	assert.Equal(t, 4, s.Mesh())
	assert.Equal(t, -1, s.Vertex())

	require.NoError(t, s.SetDepth(NodeOnly))
	assert.Equal(t, -1, s.Mesh())
	assert.Same(t, a, s.Node())
}

func TestSelectingAnotherNodeCascades(t *testing.T) {
	_, a, b := selectionGraph()
	s := NewSelection()
	s.SelectNode(a)
	require.NoError(t, s.SetDepth(IncludeMesh))
	require.NoError(t, s.SelectMesh(4))
	require.NoError(t, s.SetDepth(IncludeVertex))
	require.NoError(t, s.SelectVertex(2))

	s.SelectNode(b)
	assert.Same(t, b, s.Node())
	assert.Equal(t, -1, s.Mesh())
	assert.Equal(t, -1, s.Vertex())
	assert.Equal(t, IncludeMesh, s.Depth(), "vertex depth needs a mesh")

	// Reselecting the same node keeps everything.
	require.NoError(t, s.SelectMesh(0))
	s.SelectNode(b)
	assert.Equal(t, 0, s.Mesh())

	s.ClearNode()
	assert.Nil(t, s.Node())
	assert.Equal(t, scene.NoNode, s.NodeID())
	assert.Equal(t, NodeOnly, s.Depth())
}

func TestSelectionRejectsBadPicks(t *testing.T) {
	_, a, _ := selectionGraph()
	s := NewSelection()
	s.SelectNode(a)

	assert.ErrorIs(t, s.SelectMesh(0), ErrDepth)
	require.NoError(t, s.SetDepth(IncludeMesh))
	assert.ErrorIs(t, s.SelectMesh(2), ErrUnknownMesh)
	assert.ErrorIs(t, s.SelectVertex(0), ErrDepth)

	require.NoError(t, s.SelectMesh(0))
	require.NoError(t, s.SetDepth(IncludeVertex))
	assert.ErrorIs(t, s.SelectVertex(3), ErrVertexOutOfRange)
	assert.ErrorIs(t, s.SelectVertex(-1), ErrVertexOutOfRange)
	require.NoError(t, s.SelectVertex(2))

	s.ClearMesh()
	assert.Equal(t, IncludeMesh, s.Depth())
	assert.Equal(t, -1, s.Vertex())
}

func TestSelectionValidate(t *testing.T) {
	g, a, b := selectionGraph()
	s := NewSelection()
	assert.False(t, s.Validate(g))

	s.SelectNode(a)
	require.NoError(t, s.SetDepth(IncludeMesh))
	require.NoError(t, s.SelectMesh(4))
	assert.False(t, s.Validate(g))

	// The mesh table shrinks under the selection.
	a.Model().Meshes = a.Model().Meshes[:1]
	assert.True(t, s.Validate(g))
	assert.Equal(t, -1, s.Mesh())
	assert.Same(t, a, s.Node())

	g.Remove(a)
	assert.True(t, s.Validate(g))
	assert.Nil(t, s.Node())
	assert.Equal(t, NodeOnly, s.Depth())

	s.SelectNode(b)
	assert.False(t, s.Validate(g))
}

func TestParseDepth(t *testing.T) {
	for _, d := range []Depth{NodeOnly, IncludeMesh, IncludeVertex} {
		got, err := ParseDepth(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDepth("face")
	assert.ErrorIs(t, err, ErrDepth)
}
