package canavar

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/canavar/canavar/canavar/rt/picking"
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pickingFixture struct {
	app   *App
	input *Input
	ps    *PickingState
	graph *scene.Graph
	crate *scene.Node
}

// newPickingFixture draws one model with two meshes into the left half of a 64x48 buffer.
func newPickingFixture(t *testing.T) *pickingFixture {
	t.Helper()
	m := testPickingModule()
	m.SnapshotPath = filepath.Join(t.TempDir(), "identity.png")
	app, input := newTestApp(t, HierarchyModule{}, m)

	ps, ok := Resource[PickingState](app)
	require.True(t, ok)
	require.NotNil(t, ps.Buffer, "no GPU, in-memory identity buffer")
	assert.Nil(t, ps.Targets)

	graph, _ := Resource[scene.Graph](app)
	crate := graph.CreateModel("crate.obj", []scene.Mesh{{ID: 0, VertexCount: 8}, {ID: 1, VertexCount: 24}})
	ps.Buffer.FillRect(picking.TargetMesh, image.Rect(0, 0, 16, 48), picking.Identity{Node: crate.ID(), Mesh: 0, Vertex: -1})
	ps.Buffer.FillRect(picking.TargetMesh, image.Rect(16, 0, 32, 48), picking.Identity{Node: crate.ID(), Mesh: 1, Vertex: -1})
	ps.Buffer.Set(picking.TargetVertex, 20, 20, picking.Identity{Node: crate.ID(), Mesh: 1, Vertex: 17})

	return &pickingFixture{app: app, input: input, ps: ps, graph: graph, crate: crate}
}

func (f *pickingFixture) click(x, y float64) {
	f.input.MoveMouse(x, y)
	press(f.app, f.input, MouseButtonLeft)
}

func TestPickingModuleClickSelects(t *testing.T) {
	f := newPickingFixture(t)
	sel := f.ps.Selection()

	f.click(5, 5)
	assert.True(t, f.ps.Last.Success)
	assert.Same(t, f.crate, sel.Node())

	f.click(50, 5)
	assert.False(t, f.ps.Last.Success)
	assert.ErrorIs(t, f.ps.Last.Err, picking.ErrNoHit)
	assert.Nil(t, sel.Node())
}

func TestPickingModuleDepthKeys(t *testing.T) {
	f := newPickingFixture(t)
	sel := f.ps.Selection()

	press(f.app, f.input, Key2)
	assert.Equal(t, picking.NodeOnly, sel.Depth(), "mesh depth needs a node")

	f.click(5, 5)
	press(f.app, f.input, Key2)
	require.Equal(t, picking.IncludeMesh, sel.Depth())
	f.click(20, 5)
	assert.Equal(t, 1, sel.Mesh())

	press(f.app, f.input, Key3)
	require.Equal(t, picking.IncludeVertex, sel.Depth())
	f.click(22, 22)
	assert.Equal(t, 17, sel.Vertex())

	press(f.app, f.input, Key1)
	assert.Equal(t, picking.NodeOnly, sel.Depth())
	assert.Equal(t, -1, sel.Mesh())
	assert.Same(t, f.crate, sel.Node())
}

func TestPickingModuleDepthKeysSameFrame(t *testing.T) {
	f := newPickingFixture(t)
	sel := f.ps.Selection()
	f.click(5, 5)

	for i := 0; i < 16; i++ {
		require.NoError(t, sel.SetDepth(picking.NodeOnly))
		f.input.Press(Key2)
		f.input.Press(Key1)
		f.app.Step()
		f.input.EndFrame()
		f.input.Release(Key1)
		f.input.Release(Key2)
		require.Equal(t, picking.IncludeMesh, sel.Depth(), "round %d", i)
	}
}

func TestPickingModuleCapturedMouseIgnoresClicks(t *testing.T) {
	f := newPickingFixture(t)
	f.input.MouseCaptured = true
	f.click(5, 5)
	assert.Nil(t, f.ps.Selection().Node())
}

func TestPickingModuleDeleteRemovesSelection(t *testing.T) {
	f := newPickingFixture(t)
	f.click(5, 5)
	require.NotNil(t, f.ps.Selection().Node())

	press(f.app, f.input, KeyDelete)
	assert.False(t, f.graph.Contains(f.crate))
	app := f.app
	app.Step()
	assert.Nil(t, f.ps.Selection().Node(), "the next frame drops the removed node")

	// The camera is never deleted.
	cam, _ := Resource[ActiveCamera](app)
	f.ps.Selection().SelectNode(cam.Node)
	press(app, f.input, KeyDelete)
	assert.True(t, f.graph.Contains(cam.Node))
}

func TestPickingModuleEscapeClears(t *testing.T) {
	f := newPickingFixture(t)
	f.click(5, 5)
	press(f.app, f.input, KeyEscape)
	assert.Nil(t, f.ps.Selection().Node())
}

func TestPickingModuleSnapshot(t *testing.T) {
	f := newPickingFixture(t)
	f.click(5, 5)
	press(f.app, f.input, KeyP)

	info, err := os.Stat(f.ps.snapshotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, f.ps.WriteSnapshot(filepath.Join(t.TempDir(), "missing", "x.png")))
}

func TestToFramebuffer(t *testing.T) {
	rb := picking.NewBuffer(128, 96)
	input := &Input{MouseX: 10, MouseY: 20, WindowWidth: 64, WindowHeight: 48}
	x, y := toFramebuffer(input, rb)
	assert.Equal(t, 20, x)
	assert.Equal(t, 40, y)

	input.WindowWidth = 0
	x, y = toFramebuffer(input, rb)
	assert.Equal(t, 10, x)
	assert.Equal(t, 20, y)

	input.MouseX, input.MouseY = -0.5, -0.25
	x, y = toFramebuffer(input, rb)
	assert.Equal(t, -1, x)
	assert.Equal(t, -1, y)
}

func TestPickingModuleClickLeftOfWindow(t *testing.T) {
	f := newPickingFixture(t)
	f.click(5, 5)
	require.NotNil(t, f.ps.Selection().Node())

	f.click(-0.4, 5)
	assert.ErrorIs(t, f.ps.Last.Err, picking.ErrInvalidPickTarget)
	assert.Nil(t, f.ps.Selection().Node())
}

func TestPickingStateResize(t *testing.T) {
	f := newPickingFixture(t)
	require.NoError(t, f.ps.Resize(32, 16))
	assert.Equal(t, image.Rect(0, 0, 32, 16), f.ps.Buffer.Bounds())

	f.input.WindowWidth, f.input.WindowHeight = 32, 16
	f.click(5, 5)
	assert.ErrorIs(t, f.ps.Last.Err, picking.ErrNoHit, "resizing clears the targets")
}
