package terrain

import (
	"context"
	"testing"

	"github.com/canavar/canavar/canavar/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	p := DefaultParams()
	p.Octaves = 3
	return p
}

func testConfig(radius int) GridConfig {
	return GridConfig{Radius: radius, Resolution: 4, TileSize: 1024}
}

func newTestGrid(t *testing.T, cfg GridConfig, alloc GeometryAllocator) *TileGrid {
	t.Helper()
	g, err := NewTileGrid(cfg, testParams(), alloc, nil)
	require.NoError(t, err)
	t.Cleanup(g.Release)
	return g
}

func camAt(tileX, tileZ int) mgl32.Vec3 {
	return mgl32.Vec3{float32(tileX)*1024 + 512, 100, float32(tileZ)*1024 + 512}
}

func TestWhichTile(t *testing.T) {
	tests := []struct {
		pos  mgl32.Vec3
		want TileCoord
	}{
		{mgl32.Vec3{0, 0, 0}, TileCoord{0, 0}},
		{mgl32.Vec3{1023.9, 50, 10}, TileCoord{0, 0}},
		{mgl32.Vec3{1024, 0, 0}, TileCoord{1, 0}},
		{mgl32.Vec3{-0.5, 0, -0.5}, TileCoord{-1, -1}},
		{mgl32.Vec3{-1024, 0, 2048}, TileCoord{-1, 2}},
		{mgl32.Vec3{-1025, 0, 0}, TileCoord{-2, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WhichTile(tt.pos, 1024), "pos %v", tt.pos)
	}
}

func TestFirstUpdateFillsWindow(t *testing.T) {
	g := newTestGrid(t, testConfig(1), nil)

	d := g.Update(camAt(0, 0))
	assert.Len(t, d.Generated, 9)
	assert.Empty(t, d.Evicted)
	assert.Equal(t, g.Window(), g.ResidentTiles())

	center, ok := g.Center()
	require.True(t, ok)
	assert.Equal(t, TileCoord{0, 0}, center)
}

func TestUpdateWithinTileIsNoop(t *testing.T) {
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, testConfig(1), alloc)
	g.Update(camAt(0, 0))
	before := g.Stats()

	for _, pos := range []mgl32.Vec3{{1, 0, 1}, {1023, 500, 1023}, {600, -20, 3}} {
		d := g.Update(pos)
		assert.True(t, d.Empty(), "pos %v", pos)
	}
	assert.Equal(t, before, g.Stats())
	assert.Equal(t, 9, alloc.Live())
}

func TestUpdateMovesOneColumn(t *testing.T) {
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, testConfig(1), alloc)
	g.Update(camAt(0, 0))

	d := g.Update(camAt(1, 0))
	assert.Equal(t, []TileCoord{{-1, -1}, {-1, 0}, {-1, 1}}, d.Evicted)
	assert.Equal(t, []TileCoord{{2, -1}, {2, 0}, {2, 1}}, d.Generated)
	assert.Len(t, g.ResidentTiles(), 9)
	assert.Equal(t, 9, alloc.Live(), "evicted geometry is released")

	for _, c := range g.ResidentTiles() {
		assert.True(t, c.X >= 0 && c.X <= 2 && c.Z >= -1 && c.Z <= 1, "unexpected tile %v", c)
	}
}

func TestWindowCountInvariant(t *testing.T) {
	g := newTestGrid(t, testConfig(2), nil)
	path := [][2]int{{0, 0}, {1, 0}, {1, 1}, {-3, 1}, {-3, -2}, {10, 10}, {9, 11}, {9, 11}}
	for _, p := range path {
		g.Update(camAt(p[0], p[1]))
		resident := g.ResidentTiles()
		assert.Len(t, resident, 25, "at %v", p)

		seen := map[TileCoord]bool{}
		for _, c := range resident {
			assert.False(t, seen[c], "duplicate %v", c)
			seen[c] = true
		}
	}
}

func TestResourceExhaustedLeavesGap(t *testing.T) {
	gen := NewGenerator(testParams(), 4, 1024)
	p, err := gen.Generate(context.Background(), TileCoord{})
	require.NoError(t, err)

	alloc := NewHeapAllocator(5 * p.ByteSize())
	g := newTestGrid(t, testConfig(1), alloc)

	d := g.Update(camAt(0, 0))
	assert.Len(t, d.Generated, 5)
	assert.Len(t, d.Failed, 4)
	assert.Len(t, g.ResidentTiles(), 5)
	assert.Equal(t, d.Failed, g.FailedTiles())

	for _, c := range d.Failed {
		err := g.failed[c]
		assert.ErrorIs(t, err, ErrResourceExhausted)
		var terr *TileError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, c, terr.Coord)
	}

	// Within the same tile nothing is retried.
	assert.True(t, g.Update(camAt(0, 0)).Empty())
	assert.Equal(t, g.Stats().Resident+g.Stats().Failed, 9)
}

func TestRegenerateAll(t *testing.T) {
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, testConfig(1), alloc)
	g.Update(camAt(0, 0))
	before := g.Tiles()[4]
	height := g.HeightAt(100, 100)

	require.NoError(t, g.RegenerateAll(Seed{7, 3, 9}, 4, 35, 0.02))
	assert.Equal(t, Seed{7, 3, 9}, g.Params().Seed)
	assert.Equal(t, 4, g.Params().Octaves)
	assert.Equal(t, float32(35), g.Params().Amplitude)
	assert.Equal(t, float32(0.02), g.Params().Frequency)

	assert.Len(t, g.ResidentTiles(), 9)
	assert.Equal(t, 9, alloc.Live())
	assert.Equal(t, 18, g.Stats().Generated)
	assert.NotSame(t, before, g.Tiles()[4])
	assert.NotEqual(t, height, g.HeightAt(100, 100))

	err := g.RegenerateAll(Seed{}, 0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, 4, g.Params().Octaves, "rejected parameters leave the grid unchanged")
}

func TestSetParams(t *testing.T) {
	g := newTestGrid(t, testConfig(1), nil)
	g.Update(camAt(0, 0))

	require.NoError(t, g.SetParams(g.Params()))
	assert.Equal(t, 9, g.Stats().Generated, "unchanged parameters do not regenerate")

	p := g.Params()
	p.GrassCoverage = 0.8
	require.NoError(t, g.SetParams(p))
	assert.Equal(t, 18, g.Stats().Generated)

	require.NoError(t, g.Reset())
	assert.Equal(t, DefaultParams(), g.Params())
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := NewGenerator(testParams(), 4, 1024)
	b := NewGenerator(testParams(), 4, 1024)
	coord := TileCoord{-3, 5}

	pa, err := a.Generate(context.Background(), coord)
	require.NoError(t, err)
	pb, err := b.Generate(context.Background(), coord)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)

	other := testParams()
	other.Seed = Seed{2, 1, 1}
	pc, err := NewGenerator(other, 4, 1024).Generate(context.Background(), coord)
	require.NoError(t, err)
	assert.NotEqual(t, pa.Vertices, pc.Vertices)
}

func TestGeneratePatch(t *testing.T) {
	gen := NewGenerator(testParams(), 4, 1024)
	p, err := gen.Generate(context.Background(), TileCoord{1, -1})
	require.NoError(t, err)

	assert.Equal(t, mgl32.Vec2{1024, -1024}, p.Origin)
	assert.Equal(t, LOD{Quads: 4}, p.LOD)
	assert.Len(t, p.Vertices, 25)
	assert.Len(t, p.Indices, 4*4*6)

	for _, v := range p.Vertices {
		assert.InDelta(t, gen.HeightAt(v.Position.X(), v.Position.Z()), v.Position.Y(), 1e-4)
		assert.GreaterOrEqual(t, v.Position.Y(), p.MinHeight)
		assert.LessOrEqual(t, v.Position.Y(), p.MaxHeight)
		assert.Greater(t, v.Normal.Y(), float32(0))
		assert.InDelta(t, 1, v.Normal.Len(), 1e-4)
	}
	last := p.Vertices[len(p.Vertices)-1].Position
	assert.Equal(t, float32(2048), last.X())
	assert.Equal(t, float32(0), last.Z())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, TileCoord{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTessellationMultiplier(t *testing.T) {
	p := testParams()
	p.TessellationMultiplier = 2
	assert.Equal(t, LOD{Quads: 8}, NewGenerator(p, 4, 1024).LOD())

	p.TessellationMultiplier = 0.01
	assert.Equal(t, LOD{Quads: 1}, NewGenerator(p, 4, 1024).LOD())
}

func TestVisibleTiles(t *testing.T) {
	g := newTestGrid(t, testConfig(1), nil)
	g.Update(camAt(0, 0))

	cam := core.NewCameraState()
	eye := camAt(0, 0)
	vp := cam.GetProjectionMatrix().Mul4(cam.GetViewMatrix(eye))
	planes := cam.ExtractFrustum(vp)

	visible := g.VisibleTiles(planes)
	require.NotEmpty(t, visible)
	assert.Less(t, len(visible), 9)
	for _, tile := range visible {
		assert.NotEqual(t, 1, tile.Coord.Z, "tile %v is behind the camera", tile.Coord)
	}
}

// settle pumps the grid until no background work is left.
func settle(t *testing.T, g *TileGrid, pos mgl32.Vec3) Delta {
	t.Helper()
	var all Delta
	for i := 0; i < 100; i++ {
		g.Wait()
		d := g.Update(pos)
		all.Generated = append(all.Generated, d.Generated...)
		all.Evicted = append(all.Evicted, d.Evicted...)
		all.Failed = append(all.Failed, d.Failed...)
		if g.Stats().Pending == 0 {
			return all
		}
	}
	t.Fatal("background generation did not settle")
	return all
}

func TestAsyncGeneration(t *testing.T) {
	cfg := testConfig(1)
	cfg.AsyncWorkers = 2
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, cfg, alloc)

	d := g.Update(camAt(0, 0))
	assert.Empty(t, d.Generated, "nothing is published in the frame work starts")
	s := g.Stats()
	assert.Equal(t, 9, s.Resident+s.Pending+s.Failed)

	all := settle(t, g, camAt(0, 0))
	assert.Len(t, all.Generated, 9)
	assert.Equal(t, g.Window(), g.ResidentTiles())

	d = g.Update(camAt(1, 0))
	assert.Equal(t, []TileCoord{{-1, -1}, {-1, 0}, {-1, 1}}, d.Evicted)
	s = g.Stats()
	assert.Equal(t, 9, s.Resident+s.Pending+s.Failed)

	all = settle(t, g, camAt(1, 0))
	assert.ElementsMatch(t, []TileCoord{{2, -1}, {2, 0}, {2, 1}}, all.Generated)
	assert.Equal(t, 9, alloc.Live())
}

func TestAsyncScrolledOutWorkIsDropped(t *testing.T) {
	cfg := testConfig(1)
	cfg.AsyncWorkers = 4
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, cfg, alloc)

	g.Update(camAt(0, 0))
	g.Update(camAt(10, 10))
	settle(t, g, camAt(10, 10))

	assert.Equal(t, g.Window(), g.ResidentTiles())
	assert.Equal(t, 9, alloc.Live(), "old window geometry is released")
	for _, c := range g.ResidentTiles() {
		assert.GreaterOrEqual(t, c.X, 9)
	}
}

func TestAsyncRegenerate(t *testing.T) {
	cfg := testConfig(1)
	cfg.AsyncWorkers = 3
	alloc := NewHeapAllocator(0)
	g := newTestGrid(t, cfg, alloc)
	settle(t, g, camAt(0, 0))

	require.NoError(t, g.RegenerateAll(Seed{4, 4, 4}, 2, 10, 0.05))
	assert.Empty(t, g.ResidentTiles())
	assert.Equal(t, 9, g.Stats().Pending)

	settle(t, g, camAt(0, 0))
	assert.Len(t, g.ResidentTiles(), 9)
	assert.Equal(t, 9, alloc.Live())
}

func TestHeapAllocator(t *testing.T) {
	gen := NewGenerator(testParams(), 4, 1024)
	p, err := gen.Generate(context.Background(), TileCoord{})
	require.NoError(t, err)

	alloc := NewHeapAllocator(p.ByteSize())
	geom, err := alloc.Allocate(p)
	require.NoError(t, err)
	assert.Equal(t, p.ByteSize(), alloc.Used())

	_, err = alloc.Allocate(p)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	geom.Release()
	geom.Release()
	assert.Equal(t, 0, alloc.Used())
	assert.Equal(t, 0, alloc.Live())
}
