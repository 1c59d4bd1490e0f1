package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, msgAndArgs...)
	}
}

func assertMat4(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "element %d", i)
	}
}

// assertSameRotation treats q and -q as the same rotation.
func assertSameRotation(t *testing.T, want, got mgl32.Quat, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, 1, math.Abs(float64(want.Dot(got))), 1e-5, msgAndArgs...)
}

// chain builds a parent chain of the given depth; the last node is returned.
func chain(t *testing.T, depth int) *Node {
	t.Helper()
	n := NewNode("root")
	n.SetPosition(mgl32.Vec3{1, 2, 3})
	n.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}))
	for i := 0; i < depth; i++ {
		c := NewNode("child")
		c.SetPosition(mgl32.Vec3{float32(i) + 0.5, -1, 2})
		c.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(float32(10*(i+1))), mgl32.Vec3{1, 0, 0}))
		c.SetScale(mgl32.Vec3{2, 2, 2})
		require.NoError(t, n.AddChild(c))
		n = c
	}
	return n
}

func TestLocalTransformOrder(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(mgl32.Vec3{10, 0, 0})
	n.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	n.SetScale(mgl32.Vec3{2, 2, 2})

	// (1,0,0) scaled to (2,0,0), rotated to (0,0,-2), translated to (10,0,-2)
	p := n.LocalTransform().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assertVec3(t, mgl32.Vec3{10, 0, -2}, p)
}

func TestRootWorldEqualsLocal(t *testing.T) {
	n := chain(t, 0)
	assert.Equal(t, n.LocalTransform(), n.WorldTransform())
	assert.Equal(t, n.Position(), n.WorldPosition())
	assert.Equal(t, n.Rotation(), n.WorldRotation())
}

func TestWorldTransformComposes(t *testing.T) {
	leaf := chain(t, 3)
	parent := leaf.Parent()
	want := parent.WorldTransform().Mul4(leaf.LocalTransform())
	assertMat4(t, want, leaf.WorldTransform())
	assertVec3(t, leaf.WorldTransform().Col(3).Vec3(), leaf.WorldTranslation())
}

func TestWorldPositionIsAdditive(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(mgl32.Vec3{10, 0, 0})
	root.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	root.SetScale(mgl32.Vec3{3, 3, 3})

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 5, 1})
	require.NoError(t, root.AddChild(child))

	grandchild := NewNode("grandchild")
	grandchild.SetPosition(mgl32.Vec3{0, 0, 2})
	require.NoError(t, child.AddChild(grandchild))

	// Parent rotation and scale do not contribute.
	assert.Equal(t, mgl32.Vec3{10, 5, 1}, child.WorldPosition())
	assert.Equal(t, mgl32.Vec3{10, 5, 3}, grandchild.WorldPosition())
}

func TestSetWorldPositionRoundTrip(t *testing.T) {
	for _, depth := range []int{0, 1, 5} {
		n := chain(t, depth)
		p := mgl32.Vec3{-7, 42, 0.25}
		n.SetWorldPosition(p)
		assertVec3(t, p, n.WorldPosition(), "depth %d", depth)
	}
}

func TestSetWorldRotationRoundTrip(t *testing.T) {
	for _, depth := range []int{0, 1, 5} {
		n := chain(t, depth)
		q := mgl32.QuatRotate(mgl32.DegToRad(75), mgl32.Vec3{1, 1, 0}.Normalize())
		n.SetWorldRotation(q)
		got := n.WorldRotation()
		assertSameRotation(t, q, got, "depth %d: got %v", depth, got)

		// Applying it again changes nothing.
		local := n.Rotation()
		n.SetWorldRotation(q)
		assertSameRotation(t, local, n.Rotation(), "depth %d", depth)
	}
}

func TestAddChild(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")

	require.NoError(t, a.AddChild(b))
	require.NoError(t, a.AddChild(b))
	assert.Len(t, a.Children(), 1, "child list never holds a node twice")

	// Reparenting detaches from the previous parent.
	require.NoError(t, c.AddChild(b))
	assert.Empty(t, a.Children())
	assert.Same(t, c, b.Parent())

	assert.ErrorIs(t, a.AddChild(nil), ErrNilNode)
}

func TestAddChildRejectsCycles(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	require.NoError(t, a.AddChild(b))
	require.NoError(t, b.AddChild(c))

	tests := []struct {
		name   string
		parent *Node
		child  *Node
	}{
		{"self", a, a},
		{"direct child", b, a},
		{"grandchild", c, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parent.AddChild(tt.child)
			assert.ErrorIs(t, err, ErrCyclicHierarchy)
		})
	}

	// Nothing moved.
	assert.Nil(t, a.Parent())
	assert.Same(t, a, b.Parent())
	assert.Same(t, b, c.Parent())
	assert.Len(t, a.Children(), 1)
}

func TestRemoveChild(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	require.NoError(t, a.AddChild(b))
	require.NoError(t, b.AddChild(c))

	require.NoError(t, a.RemoveChild(b))
	assert.Nil(t, b.Parent())
	assert.Empty(t, a.Children())
	assert.Same(t, b, c.Parent(), "subtree stays intact")

	assert.ErrorIs(t, a.RemoveChild(b), ErrNotChild)
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		kind Kind
		has  Capability
		not  Capability
	}{
		{KindDummy, CapTransform, CapModel},
		{KindModel, CapModel | CapMaterial, CapLight},
		{KindFreeCamera, CapCamera, CapModel},
		{KindSpotLight, CapLight, CapCamera},
		{KindNozzleParticles, CapEmitter, CapModel},
		{KindTerrain, CapTerrain | CapMaterial, CapModel},
		{KindHaze, CapHaze, CapLight},
		{KindSky, CapSky, CapSun},
		{KindSun, CapSun, CapLight},
		{KindPersecutorCamera, CapCamera, CapModel},
		{KindNozzleEffect, CapNozzle, CapEmitter},
		{KindFirecrackerEffect, CapFirecracker, CapNozzle},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			n := newNode(NoNode, tt.kind, "")
			assert.True(t, n.Has(tt.has))
			assert.False(t, n.Has(tt.not))
		})
	}

	assert.NotNil(t, newNode(NoNode, KindModel, "").Model())
	assert.Nil(t, newNode(NoNode, KindDummy, "").Model())
	assert.NotNil(t, newNode(NoNode, KindDummyCamera, "").Camera())
	assert.Equal(t, float32(30), newNode(NoNode, KindSpotLight, "").Light().CutOffAngle)
	assert.False(t, newNode(NoNode, KindTerrain, "").Selectable())
}

func TestEnvironmentAndEffectKinds(t *testing.T) {
	haze := newNode(NoNode, KindHaze, "")
	if assert.NotNil(t, haze.Haze()) {
		assert.Equal(t, DefaultHaze(), *haze.Haze())
		assert.True(t, haze.Haze().Enabled)
	}
	assert.Nil(t, haze.Light())

	assert.NotNil(t, newNode(NoNode, KindSky, "").Sky())
	sun := newNode(NoNode, KindSun, "").Sun()
	if assert.NotNil(t, sun) {
		assert.InDelta(t, 1, sun.Direction.Len(), 1e-6)
	}
	assert.NotNil(t, newNode(NoNode, KindPersecutorCamera, "").Camera())
	assert.NotNil(t, newNode(NoNode, KindNozzleEffect, "").NozzleEffect())
	fc := newNode(NoNode, KindFirecrackerEffect, "").FirecrackerEffect()
	if assert.NotNil(t, fc) {
		assert.LessOrEqual(t, fc.MinLife, fc.MaxLife)
	}
	assert.Nil(t, newNode(NoNode, KindModel, "").Haze())

	renderable := map[Kind]bool{KindModel: true, KindNozzleParticles: true, KindNozzleEffect: true, KindFirecrackerEffect: true}
	seen := map[string]bool{}
	for k := KindDummy; k <= KindFirecrackerEffect; k++ {
		assert.Equal(t, renderable[k], k.Renderable(), k.String())
		assert.NotEqual(t, "Unknown", k.String())
		assert.False(t, seen[k.String()], "duplicate name %s", k)
		seen[k.String()] = true
		assert.True(t, newNode(NoNode, k, "").Has(CapTransform))
	}
}
