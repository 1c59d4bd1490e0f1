package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/canavar/canavar/canavar/rt/picking"
	"github.com/canavar/canavar/canavar/rt/scene"
	"github.com/canavar/canavar/canavar/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const IdentityDepthFormat = wgpu.TextureFormatDepth32Float

const identityUniformSize = 256

// IdentityObject is one renderable node as the identity pass sees it.
type IdentityObject struct {
	Node  scene.NodeID
	World mgl32.Mat4
	// Model is nil for nodes without meshes. They are drawn as a single box.
	Model *scene.Model
}

// VertexSelection names the mesh whose vertices go into the vertex target.
type VertexSelection struct {
	Node scene.NodeID
	Mesh int
}

// IdentityVertex matches VertexIn.position in identity.wgsl.
type IdentityVertex struct {
	Pos [3]float32
}

// IdentityInstance matches the instance attributes in identity.wgsl.
type IdentityInstance struct {
	ModelMat mgl32.Mat4
	ID       [4]uint32
}

// encodeID packs id the same way the readback decodes it.
func encodeID(id picking.Identity) [4]uint32 {
	b := picking.Encode(id)
	return [4]uint32{
		binary.LittleEndian.Uint32(b[0:4]),
		binary.LittleEndian.Uint32(b[4:8]),
		binary.LittleEndian.Uint32(b[8:12]),
		binary.LittleEndian.Uint32(b[12:16]),
	}
}

// meshSlab maps the unit cube onto slab i of n, stacked bottom to top along Y.
func meshSlab(i, n int) mgl32.Mat4 {
	h := 1 / float32(n)
	cy := -0.5 + (float32(i)+0.5)*h
	return mgl32.Translate3D(0, cy, 0).Mul4(mgl32.Scale3D(1, h, 1))
}

// IdentityInstances lays out one proxy box per mesh, or one per node that has none.
// A node's boxes fill its unit cube in world space.
func IdentityInstances(objs []IdentityObject) []IdentityInstance {
	out := make([]IdentityInstance, 0, len(objs))
	for _, o := range objs {
		if o.Model == nil || len(o.Model.Meshes) == 0 {
			out = append(out, IdentityInstance{
				ModelMat: o.World,
				ID:       encodeID(picking.NodeIdentity(o.Node)),
			})
			continue
		}
		n := len(o.Model.Meshes)
		for i, mesh := range o.Model.Meshes {
			out = append(out, IdentityInstance{
				ModelMat: o.World.Mul4(meshSlab(i, n)),
				ID:       encodeID(picking.Identity{Node: o.Node, Mesh: mesh.ID, Vertex: -1}),
			})
		}
	}
	return out
}

// VertexInstance returns the instance that draws the vertices of mesh on obj, and the
// number of vertices to draw.
func VertexInstance(obj IdentityObject, mesh int) (IdentityInstance, int, bool) {
	if obj.Model == nil {
		return IdentityInstance{}, 0, false
	}
	n := len(obj.Model.Meshes)
	for i, m := range obj.Model.Meshes {
		if m.ID != mesh {
			continue
		}
		if m.VertexCount <= 0 {
			return IdentityInstance{}, 0, false
		}
		return IdentityInstance{
			ModelMat: obj.World.Mul4(meshSlab(i, n)),
			ID:       encodeID(picking.Identity{Node: obj.Node, Mesh: mesh, Vertex: 0}),
		}, m.VertexCount, true
	}
	return IdentityInstance{}, 0, false
}

// ProxyPoints spreads count points on a lattice inside the unit cube. Point k stands in
// for vertex k of a mesh.
func ProxyPoints(count int) []IdentityVertex {
	if count <= 0 {
		return nil
	}
	side := int(math.Ceil(math.Cbrt(float64(count))))
	for side*side*side < count {
		side++
	}
	step := 1 / float32(side)
	at := func(c int) float32 { return -0.5 + (float32(c)+0.5)*step }

	out := make([]IdentityVertex, count)
	for k := range out {
		x, y, z := k%side, (k/side)%side, k/(side*side)
		out[k] = IdentityVertex{Pos: [3]float32{at(x), at(y), at(z)}}
	}
	return out
}

// unitCube is the triangle list of the cube from -0.5 to 0.5.
func unitCube() []IdentityVertex {
	min, max := float32(-0.5), float32(0.5)
	corner := func(i int) IdentityVertex {
		p := [3]float32{min, min, min}
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				p[axis] = max
			}
		}
		return IdentityVertex{Pos: p}
	}
	faces := [6][4]int{
		{0, 2, 6, 4}, // -X
		{1, 5, 7, 3}, // +X
		{0, 4, 5, 1}, // -Y
		{2, 3, 7, 6}, // +Y
		{0, 1, 3, 2}, // -Z
		{4, 6, 7, 5}, // +Z
	}
	out := make([]IdentityVertex, 0, 36)
	for _, f := range faces {
		out = append(out,
			corner(f[0]), corner(f[1]), corner(f[2]),
			corner(f[0]), corner(f[2]), corner(f[3]))
	}
	return out
}

func identityBufferLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: uint64(unsafe.Sizeof(IdentityVertex{})),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: uint64(unsafe.Sizeof(IdentityInstance{})),
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 4},
				{Format: wgpu.VertexFormatUint32x4, Offset: 64, ShaderLocation: 5},
			},
		},
	}
}

// IdentityPass draws node and mesh ids into TargetMesh and the vertices of the selected
// mesh into TargetVertex. Nodes are drawn as proxy boxes filling their unit cube.
type IdentityPass struct {
	MeshPipeline   *wgpu.RenderPipeline
	VertexPipeline *wgpu.RenderPipeline
	UniformBuffer  *wgpu.Buffer
	BindGroup      *wgpu.BindGroup
	CubeBuffer     *wgpu.Buffer
	CubeCount      uint32
	InstanceBuffer *wgpu.Buffer
	InstanceCap    uint32
	PointBuffer    *wgpu.Buffer
	PointCap       uint32
	Device         *wgpu.Device

	// meshInstances come first in InstanceBuffer, the vertex instance follows.
	meshInstances uint32
	pointCount    uint32
}

func NewIdentityPass(device *wgpu.Device) (*IdentityPass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "IdentityShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.IdentityWGSL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "identity shader")
	}
	defer shaderModule.Release()

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "IdentityCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: identityUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "identity bind group layout")
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, errors.Wrap(err, "identity pipeline layout")
	}

	newPipeline := func(label, entry string, topology wgpu.PrimitiveTopology, depth *wgpu.DepthStencilState) (*wgpu.RenderPipeline, error) {
		return device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  label,
			Layout: pipelineLayout,
			Vertex: wgpu.VertexState{
				Module:     shaderModule,
				EntryPoint: entry,
				Buffers:    identityBufferLayouts(),
			},
			Fragment: &wgpu.FragmentState{
				Module:     shaderModule,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{
					{
						Format:    IdentityFormat,
						WriteMask: wgpu.ColorWriteMaskAll,
					},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  topology,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			DepthStencil: depth,
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
	}

	keep := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
	meshPipeline, err := newPipeline("IdentityMeshPipeline", "vs_mesh", wgpu.PrimitiveTopologyTriangleList, &wgpu.DepthStencilState{
		Format:            IdentityDepthFormat,
		DepthWriteEnabled: true,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront:      keep,
		StencilBack:       keep,
	})
	if err != nil {
		return nil, errors.Wrap(err, "identity mesh pipeline")
	}
	vertexPipeline, err := newPipeline("IdentityVertexPipeline", "vs_vertex", wgpu.PrimitiveTopologyPointList, nil)
	if err != nil {
		meshPipeline.Release()
		return nil, errors.Wrap(err, "identity vertex pipeline")
	}

	p := &IdentityPass{
		MeshPipeline:   meshPipeline,
		VertexPipeline: vertexPipeline,
		Device:         device,
	}

	p.UniformBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "IdentityCamera",
		Size:  identityUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, errors.Wrap(err, "identity uniforms")
	}
	p.BindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "IdentityCameraBG",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.UniformBuffer, Size: identityUniformSize},
		},
	})
	if err != nil {
		p.Release()
		return nil, errors.Wrap(err, "identity bind group")
	}

	cube := unitCube()
	p.CubeCount = uint32(len(cube))
	p.CubeBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "IdentityCube",
		Size:  uint64(len(cube)) * uint64(unsafe.Sizeof(IdentityVertex{})),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, errors.Wrap(err, "identity cube buffer")
	}
	if err := device.GetQueue().WriteBuffer(p.CubeBuffer, 0, wgpu.ToBytes(cube)); err != nil {
		p.Release()
		return nil, errors.Wrap(err, "upload identity cube")
	}
	return p, nil
}

// Update uploads the camera and this frame's instances. sel is nil unless vertices are
// being picked.
func (p *IdentityPass) Update(queue *wgpu.Queue, viewProj mgl32.Mat4, objs []IdentityObject, sel *VertexSelection) error {
	if err := queue.WriteBuffer(p.UniformBuffer, 0, wgpu.ToBytes([]mgl32.Mat4{viewProj})); err != nil {
		return errors.Wrap(err, "identity uniforms")
	}

	instances := IdentityInstances(objs)
	p.meshInstances = uint32(len(instances))
	p.pointCount = 0
	if sel != nil {
		for _, o := range objs {
			if o.Node != sel.Node {
				continue
			}
			if inst, count, ok := VertexInstance(o, sel.Mesh); ok {
				if err := p.uploadPoints(queue, count); err != nil {
					p.meshInstances = 0
					return err
				}
				instances = append(instances, inst)
				p.pointCount = uint32(count)
			}
			break
		}
	}
	if len(instances) == 0 {
		return nil
	}

	count := uint32(len(instances))
	if p.InstanceBuffer == nil || p.InstanceCap < count {
		if p.InstanceBuffer != nil {
			p.InstanceBuffer.Release()
		}
		p.InstanceCap = count + 128
		buf, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "IdentityInstances",
			Size:  uint64(p.InstanceCap) * uint64(unsafe.Sizeof(IdentityInstance{})),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			p.InstanceBuffer, p.InstanceCap = nil, 0
			p.meshInstances, p.pointCount = 0, 0
			return errors.Wrap(err, "identity instance buffer")
		}
		p.InstanceBuffer = buf
	}
	return queue.WriteBuffer(p.InstanceBuffer, 0, wgpu.ToBytes(instances))
}

func (p *IdentityPass) uploadPoints(queue *wgpu.Queue, count int) error {
	if p.PointBuffer == nil || p.PointCap < uint32(count) {
		if p.PointBuffer != nil {
			p.PointBuffer.Release()
		}
		p.PointCap = uint32(count)
		buf, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "IdentityPoints",
			Size:  uint64(p.PointCap) * uint64(unsafe.Sizeof(IdentityVertex{})),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			p.PointBuffer, p.PointCap = nil, 0
			return errors.Wrap(err, "identity point buffer")
		}
		p.PointBuffer = buf
	}
	return queue.WriteBuffer(p.PointBuffer, 0, wgpu.ToBytes(ProxyPoints(count)))
}

// Record clears both targets and draws the last Update into them.
func (p *IdentityPass) Record(encoder *wgpu.CommandEncoder, targets *IdentityTargets) error {
	meshPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments:       []wgpu.RenderPassColorAttachment{targets.ColorAttachment(picking.TargetMesh)},
		DepthStencilAttachment: targets.DepthAttachment(),
	})
	if p.meshInstances > 0 {
		meshPass.SetPipeline(p.MeshPipeline)
		meshPass.SetBindGroup(0, p.BindGroup, nil)
		meshPass.SetVertexBuffer(0, p.CubeBuffer, 0, p.CubeBuffer.GetSize())
		meshPass.SetVertexBuffer(1, p.InstanceBuffer, 0, p.InstanceBuffer.GetSize())
		meshPass.Draw(p.CubeCount, p.meshInstances, 0, 0)
	}
	if err := meshPass.End(); err != nil {
		return errors.Wrap(err, "identity mesh pass")
	}
	meshPass.Release()

	vertexPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{targets.ColorAttachment(picking.TargetVertex)},
	})
	if p.pointCount > 0 {
		vertexPass.SetPipeline(p.VertexPipeline)
		vertexPass.SetBindGroup(0, p.BindGroup, nil)
		vertexPass.SetVertexBuffer(0, p.PointBuffer, 0, p.PointBuffer.GetSize())
		vertexPass.SetVertexBuffer(1, p.InstanceBuffer, 0, p.InstanceBuffer.GetSize())
		vertexPass.Draw(p.pointCount, 1, 0, p.meshInstances)
	}
	if err := vertexPass.End(); err != nil {
		return errors.Wrap(err, "identity vertex pass")
	}
	vertexPass.Release()
	return nil
}

func (p *IdentityPass) Release() {
	for _, b := range []*wgpu.Buffer{p.PointBuffer, p.InstanceBuffer, p.CubeBuffer, p.UniformBuffer} {
		if b != nil {
			b.Release()
		}
	}
	p.PointBuffer, p.InstanceBuffer, p.CubeBuffer, p.UniformBuffer = nil, nil, nil, nil
	if p.BindGroup != nil {
		p.BindGroup.Release()
		p.BindGroup = nil
	}
	for _, pl := range []*wgpu.RenderPipeline{p.VertexPipeline, p.MeshPipeline} {
		if pl != nil {
			pl.Release()
		}
	}
	p.VertexPipeline, p.MeshPipeline = nil, nil
}
