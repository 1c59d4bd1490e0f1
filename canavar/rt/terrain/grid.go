package terrain

import (
	"context"
	"maps"
	"slices"

	"github.com/canavar/canavar/canavar/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type GridConfig struct {
	Radius       int     `yaml:"radius"`
	Resolution   int     `yaml:"resolution"`
	TileSize     float32 `yaml:"tile_size"`
	AsyncWorkers int     `yaml:"async_workers"`
}

func DefaultGridConfig() GridConfig {
	return GridConfig{Radius: 1, Resolution: 128, TileSize: 1024}
}

func (c GridConfig) Validate() error {
	switch {
	case c.Radius < 0:
		return errors.Errorf("grid radius %d < 0", c.Radius)
	case c.Resolution < 1:
		return errors.Errorf("grid resolution %d < 1", c.Resolution)
	case c.TileSize <= 0:
		return errors.Errorf("tile size %v <= 0", c.TileSize)
	case c.AsyncWorkers < 0:
		return errors.Errorf("async workers %d < 0", c.AsyncWorkers)
	}
	return nil
}

// WindowSize is the number of coordinates in the active window.
func (c GridConfig) WindowSize() int {
	side := 2*c.Radius + 1
	return side * side
}

// Tile is a resident terrain patch.
type Tile struct {
	Coord    TileCoord
	Origin   mgl32.Vec2
	LOD      LOD
	Bounds   [2]mgl32.Vec3
	Geometry Geometry
}

// Delta lists what one Update changed, each list in window order.
type Delta struct {
	Generated []TileCoord
	Evicted   []TileCoord
	Failed    []TileCoord
}

func (d Delta) Empty() bool {
	return len(d.Generated) == 0 && len(d.Evicted) == 0 && len(d.Failed) == 0
}

type GridStats struct {
	Resident  int
	Pending   int
	Failed    int
	Generated int
	Evicted   int
}

// TileGrid keeps a (2r+1)^2 window of terrain tiles centred on the camera's tile.
// It is driven from the main thread; with AsyncWorkers > 0 patches are built in the
// background and published by Update.
type TileGrid struct {
	cfg   GridConfig
	gen   *Generator
	alloc GeometryAllocator
	log   core.Logger
	async *asyncSource

	tiles     map[TileCoord]*Tile
	failed    map[TileCoord]error
	center    TileCoord
	hasCenter bool

	generatedTotal int
	evictedTotal   int
}

func NewTileGrid(cfg GridConfig, params Params, alloc GeometryAllocator, log core.Logger) (*TileGrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = NewHeapAllocator(0)
	}
	g := &TileGrid{
		cfg:    cfg,
		gen:    NewGenerator(params, cfg.Resolution, cfg.TileSize),
		alloc:  alloc,
		log:    core.OrNop(log),
		tiles:  make(map[TileCoord]*Tile),
		failed: make(map[TileCoord]error),
	}
	if cfg.AsyncWorkers > 0 {
		g.async = newAsyncSource(cfg.AsyncWorkers)
	}
	return g, nil
}

func (g *TileGrid) Config() GridConfig { return g.cfg }
func (g *TileGrid) Params() Params     { return g.gen.Params() }

// Center returns the tile the window is centred on; ok is false before the first Update.
func (g *TileGrid) Center() (TileCoord, bool) { return g.center, g.hasCenter }

// Window lists the coordinates of the active window, row by row.
func (g *TileGrid) Window() []TileCoord {
	if !g.hasCenter {
		return nil
	}
	return window(g.center, g.cfg.Radius)
}

func window(center TileCoord, radius int) []TileCoord {
	out := make([]TileCoord, 0, (2*radius+1)*(2*radius+1))
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, TileCoord{center.X + dx, center.Z + dz})
		}
	}
	return out
}

func (g *TileGrid) inWindow(c TileCoord) bool {
	r := g.cfg.Radius
	dx, dz := c.X-g.center.X, c.Z-g.center.Z
	return g.hasCenter && dx >= -r && dx <= r && dz >= -r && dz <= r
}

// Update recentres the window on the camera's tile. Within the same tile it only publishes
// finished background work.
func (g *TileGrid) Update(cameraWorldPosition mgl32.Vec3) Delta {
	var d Delta
	if g.async != nil {
		g.publish(&d)
	}

	current := WhichTile(cameraWorldPosition, g.cfg.TileSize)
	if g.hasCenter && current == g.center {
		g.dispatch()
		return d
	}
	if g.hasCenter {
		g.log.Debugf("terrain: recentre %v -> %v", g.center, current)
	}
	g.center = current
	g.hasCenter = true

	for _, c := range g.sortedResident() {
		if !g.inWindow(c) {
			g.evict(c)
			d.Evicted = append(d.Evicted, c)
		}
	}
	for c := range g.failed {
		if !g.inWindow(c) {
			delete(g.failed, c)
		}
	}
	if g.async != nil {
		for _, c := range slices.Collect(maps.Keys(g.async.inflight)) {
			if !g.inWindow(c) {
				g.async.drop(c)
			}
		}
		g.async.queue = slices.DeleteFunc(g.async.queue, func(c TileCoord) bool { return !g.inWindow(c) })
	}

	g.fill(&d)
	return d
}

// fill requests every window coordinate that is neither resident nor pending.
func (g *TileGrid) fill(d *Delta) {
	for _, c := range window(g.center, g.cfg.Radius) {
		if _, ok := g.tiles[c]; ok {
			continue
		}
		if g.async != nil {
			delete(g.failed, c)
			g.async.enqueue(c)
			continue
		}
		patch, err := g.gen.Generate(context.Background(), c)
		if err == nil {
			err = g.insert(patch)
		}
		g.record(c, err, d)
	}
	g.dispatch()
}

func (g *TileGrid) dispatch() {
	if g.async != nil {
		g.async.dispatch(g.gen)
	}
}

// publish moves finished background patches into the window.
func (g *TileGrid) publish(d *Delta) {
	results := g.async.collect()
	slices.SortFunc(results, func(a, b result) int { return compareCoord(a.coord, b.coord) })
	for _, r := range results {
		err := r.err
		if err == nil {
			err = g.insert(r.patch)
		}
		g.record(r.coord, err, d)
	}
}

func (g *TileGrid) record(c TileCoord, err error, d *Delta) {
	if err != nil {
		terr := &TileError{Coord: c, Err: err}
		g.failed[c] = terr
		d.Failed = append(d.Failed, c)
		g.log.Warnf("terrain: %v", terr)
		return
	}
	delete(g.failed, c)
	g.generatedTotal++
	d.Generated = append(d.Generated, c)
}

func (g *TileGrid) insert(p *Patch) error {
	geom, err := g.alloc.Allocate(p)
	if err != nil {
		return err
	}
	g.tiles[p.Coord] = &Tile{
		Coord:    p.Coord,
		Origin:   p.Origin,
		LOD:      p.LOD,
		Bounds:   p.Bounds(g.cfg.TileSize),
		Geometry: geom,
	}
	return nil
}

func (g *TileGrid) evict(c TileCoord) {
	t := g.tiles[c]
	delete(g.tiles, c)
	t.Geometry.Release()
	g.evictedTotal++
}

// RegenerateAll replaces the four noise parameters and rebuilds the window.
func (g *TileGrid) RegenerateAll(seed Seed, octaves int, amplitude, frequency float32) error {
	p := g.Params()
	p.Seed = seed
	p.Octaves = octaves
	p.Amplitude = amplitude
	p.Frequency = frequency
	return g.setParams(p, true)
}

// SetParams applies p and rebuilds the window if anything changed.
func (g *TileGrid) SetParams(p Params) error {
	return g.setParams(p, false)
}

// Reset restores the default parameters.
func (g *TileGrid) Reset() error {
	return g.SetParams(DefaultParams())
}

func (g *TileGrid) setParams(p Params, force bool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !force && p == g.Params() {
		return nil
	}
	g.gen = NewGenerator(p, g.cfg.Resolution, g.cfg.TileSize)
	g.releaseAll()
	if g.hasCenter {
		g.log.Infof("terrain: regenerating %d tiles", g.cfg.WindowSize())
		var d Delta
		g.fill(&d)
	}
	return nil
}

func (g *TileGrid) releaseAll() {
	if g.async != nil {
		g.async.dropAll()
	}
	for _, c := range g.sortedResident() {
		g.evict(c)
	}
	clear(g.failed)
}

// Release frees every tile and stops background work. The grid must not be used afterwards.
func (g *TileGrid) Release() {
	if g.async != nil {
		g.async.close()
	}
	for _, c := range g.sortedResident() {
		g.evict(c)
	}
	clear(g.failed)
	g.hasCenter = false
}

// Wait blocks until background work started so far has finished. The results are published
// by the next Update.
func (g *TileGrid) Wait() {
	if g.async != nil {
		g.async.wait()
	}
}

// ResidentTiles lists resident coordinates row by row.
func (g *TileGrid) ResidentTiles() []TileCoord {
	return g.sortedResident()
}

func (g *TileGrid) Tile(c TileCoord) (*Tile, bool) {
	t, ok := g.tiles[c]
	return t, ok
}

// Tiles returns resident tiles in the order of ResidentTiles.
func (g *TileGrid) Tiles() []*Tile {
	coords := g.sortedResident()
	out := make([]*Tile, len(coords))
	for i, c := range coords {
		out[i] = g.tiles[c]
	}
	return out
}

// VisibleTiles returns resident tiles whose bounds intersect the frustum.
func (g *TileGrid) VisibleTiles(planes [6]mgl32.Vec4) []*Tile {
	var out []*Tile
	for _, t := range g.Tiles() {
		if core.AABBInFrustum(t.Bounds, planes) {
			out = append(out, t)
		}
	}
	return out
}

// FailedTiles lists window coordinates whose last attempt failed.
func (g *TileGrid) FailedTiles() []TileCoord {
	out := slices.Collect(maps.Keys(g.failed))
	slices.SortFunc(out, compareCoord)
	return out
}

// HeightAt samples the terrain height field at a world x/z.
func (g *TileGrid) HeightAt(x, z float32) float32 {
	return g.gen.HeightAt(x, z)
}

func (g *TileGrid) Stats() GridStats {
	s := GridStats{
		Resident:  len(g.tiles),
		Failed:    len(g.failed),
		Generated: g.generatedTotal,
		Evicted:   g.evictedTotal,
	}
	if g.async != nil {
		s.Pending = g.async.pendingCount()
	}
	return s
}

func (g *TileGrid) sortedResident() []TileCoord {
	out := slices.Collect(maps.Keys(g.tiles))
	slices.SortFunc(out, compareCoord)
	return out
}

func compareCoord(a, b TileCoord) int {
	if a.Z != b.Z {
		return a.Z - b.Z
	}
	return a.X - b.X
}
