package terrain

import (
	"context"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type TileCoord struct {
	X, Z int
}

func (c TileCoord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

// WhichTile returns the tile containing the world position's x/z projection.
func WhichTile(pos mgl32.Vec3, tileSize float32) TileCoord {
	return TileCoord{
		X: int(math32.Floor(pos.X() / tileSize)),
		Z: int(math32.Floor(pos.Z() / tileSize)),
	}
}

// Vertex layout: position, normal, grass weight. VertexStride is its size in bytes.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Grass    float32
}

const VertexStride = 7 * 4

// LOD is the fixed level-of-detail policy a tile was built with.
type LOD struct {
	Quads int // quads per tile side
}

// Patch is a tile's CPU-side geometry, ready for upload.
type Patch struct {
	Coord     TileCoord
	Origin    mgl32.Vec2
	LOD       LOD
	Vertices  []Vertex
	Indices   []uint32
	MinHeight float32
	MaxHeight float32
}

func (p *Patch) ByteSize() int {
	return len(p.Vertices)*VertexStride + len(p.Indices)*4
}

// Bounds is the patch's axis aligned box in world space.
func (p *Patch) Bounds(tileSize float32) [2]mgl32.Vec3 {
	return [2]mgl32.Vec3{
		{p.Origin.X(), p.MinHeight, p.Origin.Y()},
		{p.Origin.X() + tileSize, p.MaxHeight, p.Origin.Y() + tileSize},
	}
}

// Generator builds tile patches. It is immutable and safe to share between goroutines.
type Generator struct {
	field      field
	resolution int
	tileSize   float32
}

func NewGenerator(params Params, resolution int, tileSize float32) *Generator {
	return &Generator{field: newField(params), resolution: resolution, tileSize: tileSize}
}

func (g *Generator) Params() Params { return g.field.params }

func (g *Generator) LOD() LOD {
	quads := int(float32(g.resolution)*g.field.params.TessellationMultiplier + 0.5)
	if quads < 1 {
		quads = 1
	}
	return LOD{Quads: quads}
}

func (g *Generator) HeightAt(x, z float32) float32 {
	return g.field.height(x, z)
}

// Generate builds the patch for coord. It returns ctx's error if ctx is cancelled part way.
func (g *Generator) Generate(ctx context.Context, coord TileCoord) (*Patch, error) {
	lod := g.LOD()
	n := lod.Quads
	step := g.tileSize / float32(n)
	origin := mgl32.Vec2{float32(coord.X) * g.tileSize, float32(coord.Z) * g.tileSize}

	// Heights with a one sample border for central difference normals.
	side := n + 3
	heights := make([]float32, side*side)
	for j := 0; j < side; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := origin.Y() + float32(j-1)*step
		for i := 0; i < side; i++ {
			x := origin.X() + float32(i-1)*step
			heights[j*side+i] = g.field.height(x, z)
		}
	}
	at := func(i, j int) float32 { return heights[(j+1)*side+(i+1)] }

	p := &Patch{
		Coord:     coord,
		Origin:    origin,
		LOD:       lod,
		Vertices:  make([]Vertex, 0, (n+1)*(n+1)),
		Indices:   make([]uint32, 0, n*n*6),
		MinHeight: math.MaxFloat32,
		MaxHeight: -math.MaxFloat32,
	}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			h := at(i, j)
			normal := mgl32.Vec3{
				at(i-1, j) - at(i+1, j),
				2 * step,
				at(i, j-1) - at(i, j+1),
			}.Normalize()
			p.Vertices = append(p.Vertices, Vertex{
				Position: mgl32.Vec3{origin.X() + float32(i)*step, h, origin.Y() + float32(j)*step},
				Normal:   normal,
				Grass:    g.field.grass(normal.Y()),
			})
			p.MinHeight = math32.Min(p.MinHeight, h)
			p.MaxHeight = math32.Max(p.MaxHeight, h)
		}
	}

	row := uint32(n + 1)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a := uint32(j)*row + uint32(i)
			b := a + 1
			c := a + row
			d := c + 1
			p.Indices = append(p.Indices, a, c, b, b, c, d)
		}
	}
	return p, nil
}
