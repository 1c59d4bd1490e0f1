package canavar

import (
	"math/rand/v2"

	"github.com/canavar/canavar/canavar/rt/gpu"
	"github.com/canavar/canavar/canavar/rt/scene"
	"github.com/canavar/canavar/canavar/rt/terrain"
)

// TerrainModule streams terrain tiles around the active camera. Install after
// HierarchyModule, and after GpuModule to upload tiles to the GPU.
type TerrainModule struct {
	Grid     terrain.GridConfig
	Document terrain.Document
	// Budget caps geometry bytes; 0 is unbounded.
	Budget uint64
	// Allocator overrides the GPU or heap allocator picked at install.
	Allocator terrain.GeometryAllocator
}

func NewTerrainModule() TerrainModule {
	return TerrainModule{
		Grid:     terrain.DefaultGridConfig(),
		Document: terrain.DefaultDocument(),
	}
}

// TerrainState is the editor's terrain node and its tile window.
type TerrainState struct {
	Grid     *terrain.TileGrid
	Document terrain.Document
	Node     *scene.Node
	Delta    terrain.Delta

	rng *rand.Rand
	log Logger
}

// Apply takes material and the enabled flag from doc and regenerates the tiles when
// generation parameters changed. On error nothing changes.
func (ts *TerrainState) Apply(doc terrain.Document) error {
	if err := ts.Grid.SetParams(doc.Params); err != nil {
		return err
	}
	ts.Document = doc
	return nil
}

// GenerateSeed picks a new seed in [0,1)^3 and regenerates every tile.
func (ts *TerrainState) GenerateSeed() error {
	doc := ts.Document
	doc.Seed = terrain.Seed{X: ts.rng.Float32(), Y: ts.rng.Float32(), Z: ts.rng.Float32()}
	return ts.Apply(doc)
}

// Reset restores default parameters and material. The enabled flag is kept.
func (ts *TerrainState) Reset() error {
	if err := ts.Grid.Reset(); err != nil {
		return err
	}
	enabled := ts.Document.Enabled
	ts.Document = terrain.DefaultDocument()
	ts.Document.Enabled = enabled
	return nil
}

func (m TerrainModule) Install(app *App, cmd *Commands) {
	graph, ok := Resource[scene.Graph](app)
	if !ok {
		panic("TerrainModule requires HierarchyModule")
	}

	alloc := m.Allocator
	if alloc == nil {
		if gs, ok := Resource[GpuState](app); ok {
			alloc = gpu.NewTileAllocator(gs.device, m.Budget, app.Logger())
		} else {
			alloc = terrain.NewHeapAllocator(int(m.Budget))
		}
	}

	grid, err := terrain.NewTileGrid(m.Grid, m.Document.Params, alloc, app.Logger())
	if err != nil {
		panic(err)
	}

	node := graph.Create(scene.KindTerrain, "Terrain")
	cmd.AddResources(&TerrainState{
		Grid:     grid,
		Document: m.Document,
		Node:     node,
		log:      app.Logger(),
		rng:      rand.New(rand.NewPCG(uint64(m.Document.Seed.X*1e6), uint64(m.Document.Seed.Z*1e6))),
	})

	app.UseSystem(
		System(terrainInputSystem).
			InStage(Update),
	)
	app.UseSystem(
		System(terrainStreamSystem).
			InStage(PostUpdate),
	)
}

func terrainInputSystem(ts *TerrainState, input *Input) {
	var err error
	switch {
	case input.JustPressed[KeyF5]:
		err = ts.GenerateSeed()
	case input.JustPressed[KeyR] && input.Pressed[KeyControl]:
		err = ts.Reset()
	}
	if err != nil {
		ts.log.Errorf("terrain: %v", err)
	}
}

// terrainStreamSystem recentres the tile window on the camera. A disabled terrain
// keeps its tiles but stops streaming.
func terrainStreamSystem(ts *TerrainState, cam *ActiveCamera) {
	if !ts.Document.Enabled {
		ts.Delta = terrain.Delta{}
		return
	}
	ts.Delta = ts.Grid.Update(cam.Position())
}
