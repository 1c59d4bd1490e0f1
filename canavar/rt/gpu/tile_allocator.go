package gpu

import (
	"fmt"

	"github.com/canavar/canavar/canavar/rt/core"
	"github.com/canavar/canavar/canavar/rt/terrain"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// TileAllocator uploads terrain patches into vertex and index buffers under a byte budget.
type TileAllocator struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Budget uint64
	Log    core.Logger

	used uint64
}

func NewTileAllocator(device *wgpu.Device, budget uint64, log core.Logger) *TileAllocator {
	return &TileAllocator{
		Device: device,
		Queue:  device.GetQueue(),
		Budget: budget,
		Log:    core.OrNop(log),
	}
}

// Used is the number of bytes held by live tile buffers.
func (a *TileAllocator) Used() uint64 { return a.used }

func (a *TileAllocator) Allocate(p *terrain.Patch) (terrain.Geometry, error) {
	vertexBytes := wgpu.ToBytes(p.Vertices)
	indexBytes := wgpu.ToBytes(p.Indices)
	size := alignedSize(len(vertexBytes)) + alignedSize(len(indexBytes))
	if a.Budget > 0 && a.used+size > a.Budget {
		return nil, errors.Wrapf(terrain.ErrResourceExhausted, "tile %v needs %d bytes, %d of %d in use", p.Coord, size, a.used, a.Budget)
	}

	vb, err := a.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Terrain VB %v", p.Coord),
		Size:  alignedSize(len(vertexBytes)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrapf(terrain.ErrResourceExhausted, "vertex buffer: %v", err)
	}
	ib, err := a.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("Terrain IB %v", p.Coord),
		Size:  alignedSize(len(indexBytes)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return nil, errors.Wrapf(terrain.ErrResourceExhausted, "index buffer: %v", err)
	}

	a.Queue.WriteBuffer(vb, 0, vertexBytes)
	a.Queue.WriteBuffer(ib, 0, indexBytes)
	a.used += size
	a.Log.Debugf("gpu: tile %v uploaded (%d bytes)", p.Coord, size)

	return &TileMesh{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(p.Indices)),
		alloc:        a,
		size:         size,
	}, nil
}

// TileMesh is a resident tile's GPU geometry.
type TileMesh struct {
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	IndexCount   uint32

	alloc *TileAllocator
	size  uint64
}

func (m *TileMesh) Draw(pass *wgpu.RenderPassEncoder) {
	pass.SetVertexBuffer(0, m.VertexBuffer, 0, m.VertexBuffer.GetSize())
	pass.SetIndexBuffer(m.IndexBuffer, wgpu.IndexFormatUint32, 0, m.IndexBuffer.GetSize())
	pass.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
}

func (m *TileMesh) Release() {
	if m.alloc == nil {
		return
	}
	m.VertexBuffer.Release()
	m.IndexBuffer.Release()
	m.alloc.used -= m.size
	m.alloc = nil
}

// TerrainVertexLayout matches terrain.Vertex.
func TerrainVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: terrain.VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32, Offset: 24, ShaderLocation: 2},
		},
	}
}

// alignedSize rounds n up to the 4 byte multiple WriteBuffer requires.
func alignedSize(n int) uint64 {
	return uint64((n + 3) &^ 3)
}
