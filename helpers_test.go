package canavar

import (
	"testing"

	"github.com/canavar/canavar/canavar/rt/terrain"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, msgAndArgs...)
	}
}

// newTestApp installs modules on a windowless app with a preset Input resource.
func newTestApp(t *testing.T, modules ...Module) (*App, *Input) {
	t.Helper()
	app := NewApp()
	input := &Input{WindowWidth: 64, WindowHeight: 48}
	app.Commands().AddResources(input)
	app.UseModules(modules...)
	return app, input
}

func testTerrainModule() TerrainModule {
	m := NewTerrainModule()
	m.Grid = terrain.GridConfig{Radius: 1, Resolution: 4, TileSize: 64}
	m.Document.Octaves = 3
	return m
}

func testPickingModule() PickingModule {
	m := NewPickingModule()
	m.Width, m.Height = 64, 48
	return m
}

// press simulates one frame with key held down from this frame on.
func press(app *App, input *Input, key int) {
	input.Press(key)
	app.Step()
	input.EndFrame()
	input.Release(key)
	input.EndFrame()
}
