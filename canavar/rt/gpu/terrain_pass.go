package gpu

import (
	"github.com/canavar/canavar/canavar/rt/shaders"
	"github.com/canavar/canavar/canavar/rt/terrain"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// TerrainUniforms matches Uniforms in terrain.wgsl.
type TerrainUniforms struct {
	ViewProj mgl32.Mat4
	Eye      [4]float32
	LightDir [4]float32
	Material [4]float32
}

const terrainUniformSize = 256

func NewTerrainUniforms(viewProj mgl32.Mat4, eye, lightDir mgl32.Vec3, m terrain.Material) TerrainUniforms {
	return TerrainUniforms{
		ViewProj: viewProj,
		Eye:      [4]float32{eye.X(), eye.Y(), eye.Z(), 1},
		LightDir: [4]float32{lightDir.X(), lightDir.Y(), lightDir.Z(), 0},
		Material: [4]float32{m.Ambient, m.Diffuse, m.Specular, m.Shininess},
	}
}

// TerrainPass draws resident tiles uploaded by TileAllocator.
type TerrainPass struct {
	Pipeline      *wgpu.RenderPipeline
	UniformBuffer *wgpu.Buffer
	BindGroup     *wgpu.BindGroup
	Device        *wgpu.Device
}

func NewTerrainPass(device *wgpu.Device, format wgpu.TextureFormat) (*TerrainPass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "TerrainShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TerrainWGSL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain shader")
	}
	defer shaderModule.Release()

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "TerrainUniformsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: terrainUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain bind group layout")
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain pipeline layout")
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "TerrainPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{TerrainVertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		// TODO: add a Depth32Float attachment once models share this pass.
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain pipeline")
	}

	ub, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "TerrainUniforms",
		Size:  terrainUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain uniforms")
	}

	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "TerrainUniformsBG",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: ub, Size: terrainUniformSize},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "terrain bind group")
	}

	return &TerrainPass{
		Pipeline:      pipeline,
		UniformBuffer: ub,
		BindGroup:     bg,
		Device:        device,
	}, nil
}

func (p *TerrainPass) Update(queue *wgpu.Queue, u TerrainUniforms) error {
	return queue.WriteBuffer(p.UniformBuffer, 0, wgpu.ToBytes([]TerrainUniforms{u}))
}

// Draw records every tile whose geometry lives on the GPU. Tiles on other
// allocators are skipped.
func (p *TerrainPass) Draw(pass *wgpu.RenderPassEncoder, tiles []*terrain.Tile) int {
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	drawn := 0
	for _, t := range tiles {
		mesh, ok := t.Geometry.(*TileMesh)
		if !ok {
			continue
		}
		mesh.Draw(pass)
		drawn++
	}
	return drawn
}

func (p *TerrainPass) Release() {
	if p.BindGroup != nil {
		p.BindGroup.Release()
	}
	if p.UniformBuffer != nil {
		p.UniformBuffer.Release()
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
