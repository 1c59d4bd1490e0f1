package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCreate(t *testing.T) {
	g := NewGraph()
	a := g.Create(KindDummy, "")
	b := g.Create(KindModel, "")
	c := g.Create(KindModel, "Statue")

	assert.Equal(t, NodeID(1), a.ID())
	assert.Equal(t, NodeID(2), b.ID())
	assert.Equal(t, NodeID(3), c.ID())
	assert.Equal(t, "Dummy #1", a.Name())
	assert.Equal(t, "Model #1", b.Name())
	assert.Equal(t, "Statue", c.Name())
	assert.NotEqual(t, a.UUID(), b.UUID())

	n, ok := g.Lookup(2)
	require.True(t, ok)
	assert.Same(t, b, n)

	_, ok = g.Lookup(42)
	assert.False(t, ok)
	assert.Equal(t, 3, g.Len())
}

func TestGraphCreateModel(t *testing.T) {
	g := NewGraph()
	meshes := []Mesh{{ID: 0, Name: "body", VertexCount: 120}, {ID: 1, Name: "wheel", VertexCount: 48}}
	n := g.CreateModel("car.obj", meshes)

	require.NotNil(t, n.Model())
	assert.Equal(t, "car.obj", n.Model().Name)
	m, ok := n.Model().MeshByID(1)
	require.True(t, ok)
	assert.Equal(t, "wheel", m.Name)
	_, ok = n.Model().MeshByID(2)
	assert.False(t, ok)

	// The mesh table is copied.
	meshes[0].Name = "changed"
	assert.Equal(t, "body", n.Model().Meshes[0].Name)
}

func TestGraphRemoveCascades(t *testing.T) {
	g := NewGraph()
	root := g.Create(KindDummy, "root")
	a := g.Create(KindDummy, "a")
	b := g.Create(KindDummy, "b")
	c := g.Create(KindDummy, "c")
	other := g.Create(KindDummy, "other")
	require.NoError(t, g.SetParent(a, root))
	require.NoError(t, g.SetParent(b, a))
	require.NoError(t, g.SetParent(c, a))

	removed := g.Remove(a)
	assert.Equal(t, []NodeID{a.ID(), b.ID(), c.ID()}, removed)
	assert.Empty(t, root.Children(), "removed node is detached from its parent")

	for _, id := range removed {
		_, ok := g.Lookup(id)
		assert.False(t, ok)
	}
	assert.Equal(t, []*Node{root, other}, g.Nodes())
	assert.False(t, g.Contains(b))

	assert.Nil(t, g.Remove(a), "second removal is a no-op")

	// Ids are never reused.
	d := g.Create(KindDummy, "")
	assert.Equal(t, NodeID(6), d.ID())
}

func TestGraphSetParent(t *testing.T) {
	g := NewGraph()
	a := g.Create(KindDummy, "a")
	b := g.Create(KindDummy, "b")

	require.NoError(t, g.SetParent(b, a))
	assert.Equal(t, []*Node{a}, g.Roots())

	require.NoError(t, g.SetParent(b, nil))
	assert.Equal(t, []*Node{a, b}, g.Roots())

	assert.ErrorIs(t, g.SetParent(a, a), ErrCyclicHierarchy)
	assert.ErrorIs(t, g.SetParent(NewNode("stray"), a), ErrUnknownNode)
	assert.ErrorIs(t, g.SetParent(a, NewNode("stray")), ErrUnknownNode)
}

func TestAddChildAcrossGraphs(t *testing.T) {
	a, b := NewGraph(), NewGraph()
	a.Create(KindDummy, "a1")
	a2 := a.Create(KindDummy, "a2")
	b1 := b.Create(KindDummy, "b1")
	b2 := b.Create(KindDummy, "b2")

	assert.ErrorIs(t, b1.AddChild(a2), ErrUnknownNode)
	assert.Nil(t, a2.Parent())
	assert.Empty(t, b1.Children())

	// Removing b1 leaves b2 and graph a untouched.
	assert.Equal(t, []NodeID{b1.ID()}, b.Remove(b1))
	got, ok := b.Lookup(b2.ID())
	require.True(t, ok)
	assert.Same(t, b2, got)
	assert.Equal(t, 1, b.Len())
	got, ok = a.Lookup(a2.ID())
	require.True(t, ok)
	assert.Same(t, a2, got)
	assert.True(t, a.Contains(a2))

	// A registered node never hides under a detached parent.
	stray := NewNode("stray")
	model := b.CreateModel("crate", nil)
	assert.ErrorIs(t, stray.AddChild(model), ErrUnknownNode)
	assert.ErrorIs(t, model.AddChild(stray), ErrUnknownNode)
	var walked int
	b.Walk(func(*Node, int) bool { walked++; return true })
	assert.Equal(t, 2, walked)
	assert.Len(t, b.Roots(), 2)
}

func TestGraphWalk(t *testing.T) {
	g := NewGraph()
	a := g.Create(KindDummy, "a")
	g.Create(KindDummy, "b")
	c := g.Create(KindDummy, "c")
	d := g.Create(KindDummy, "d")
	require.NoError(t, g.SetParent(c, a))
	require.NoError(t, g.SetParent(d, c))

	var names []string
	var depths []int
	g.Walk(func(n *Node, depth int) bool {
		names = append(names, n.Name())
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"a", "c", "d", "b"}, names)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)

	names = names[:0]
	g.Walk(func(n *Node, depth int) bool {
		names = append(names, n.Name())
		return n != a
	})
	assert.Equal(t, []string{"a", "b"}, names)
}
