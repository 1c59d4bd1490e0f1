package canavar

import (
	"github.com/canavar/canavar/canavar/rt/gpu"
	"github.com/canavar/canavar/canavar/rt/picking"
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// RenderModule draws visible terrain tiles into the surface. With picking installed it also
// draws every RenderList node into the identity targets. Install last, after every module
// it draws for.
type RenderModule struct {
	ClearColor wgpu.Color
	LightDir   mgl32.Vec3
}

func NewRenderModule() RenderModule {
	return RenderModule{
		ClearColor: wgpu.Color{R: 0.53, G: 0.68, B: 0.82, A: 1},
		LightDir:   mgl32.Vec3{-0.4, -1, -0.3}.Normalize(),
	}
}

// Renderer records and presents one frame per Render stage.
type Renderer struct {
	gs      *GpuState
	cam     *ActiveCamera
	terrain *TerrainState
	picking *PickingState
	graph   *scene.Graph
	list    *RenderList
	pass    *gpu.TerrainPass
	ids     *gpu.IdentityPass
	module  RenderModule
	log     Logger

	// DrawnTiles is the tile count of the last frame.
	DrawnTiles int
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	gs, ok := Resource[GpuState](app)
	if !ok {
		panic("RenderModule requires GpuModule")
	}
	cam, ok := Resource[ActiveCamera](app)
	if !ok {
		panic("RenderModule requires HierarchyModule")
	}

	r := &Renderer{gs: gs, cam: cam, module: m, log: app.Logger()}
	r.terrain, _ = Resource[TerrainState](app)
	r.picking, _ = Resource[PickingState](app)
	if r.terrain != nil {
		pass, err := gpu.NewTerrainPass(gs.device, gs.SurfaceFormat())
		if err != nil {
			panic(err)
		}
		r.pass = pass
	}
	if r.picking != nil && r.picking.Targets != nil {
		r.graph, _ = Resource[scene.Graph](app)
		r.list, _ = Resource[RenderList](app)
		ids, err := gpu.NewIdentityPass(gs.device)
		if err != nil {
			panic(err)
		}
		r.ids = ids
	}
	cmd.AddResources(r)

	app.UseSystem(
		System(renderSystem).
			InStage(Render),
	)
}

func renderSystem(r *Renderer) {
	if err := r.frame(); err != nil {
		r.log.Errorf("render: %v", err)
	}
}

func (r *Renderer) frame() error {
	gs := r.gs
	nextTexture, err := gs.surface.GetCurrentTexture()
	if err != nil {
		return errors.Wrap(err, "acquire surface texture")
	}
	defer nextTexture.Release()
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return errors.Wrap(err, "surface view")
	}
	defer view.Release()

	encoder, err := gs.device.CreateCommandEncoder(nil)
	if err != nil {
		return errors.Wrap(err, "create encoder")
	}
	defer encoder.Release()

	mainPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: r.module.ClearColor,
		}},
	})
	r.DrawnTiles = 0
	if r.pass != nil && r.terrain.Document.Enabled {
		u := gpu.NewTerrainUniforms(r.cam.ViewProjection(), r.cam.Position(), r.module.LightDir, r.terrain.Document.Material)
		if err := r.pass.Update(gs.queue, u); err != nil {
			r.log.Warnf("render: terrain uniforms: %v", err)
		}
		r.DrawnTiles = r.pass.Draw(mainPass, r.terrain.Grid.VisibleTiles(r.cam.Frustum()))
	}
	if err := mainPass.End(); err != nil {
		return errors.Wrap(err, "main pass")
	}
	mainPass.Release()

	if r.ids != nil {
		objs := identityObjects(r.graph, r.list)
		sel := vertexSelection(r.picking.Selection())
		if err := r.ids.Update(gs.queue, r.cam.ViewProjection(), objs, sel); err != nil {
			r.log.Warnf("render: identity instances: %v", err)
		}
		if err := r.ids.Record(encoder, r.picking.Targets); err != nil {
			return err
		}
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish encoder")
	}
	defer cmdBuffer.Release()

	gs.queue.Submit(cmdBuffer)
	gs.surface.Present()
	return nil
}

func (r *Renderer) Release() {
	if r.pass != nil {
		r.pass.Release()
	}
	if r.ids != nil {
		r.ids.Release()
	}
}

// identityObjects pairs each RenderList item with the model of its node.
func identityObjects(graph *scene.Graph, list *RenderList) []gpu.IdentityObject {
	if list == nil {
		return nil
	}
	objs := make([]gpu.IdentityObject, 0, len(list.Items))
	for _, item := range list.Items {
		obj := gpu.IdentityObject{Node: item.Node, World: item.World}
		if graph != nil {
			if n, ok := graph.Lookup(item.Node); ok {
				obj.Model = n.Model()
			}
		}
		objs = append(objs, obj)
	}
	return objs
}

// vertexSelection is the mesh whose vertices are pickable, or nil below IncludeVertex depth.
func vertexSelection(sel *picking.Selection) *gpu.VertexSelection {
	if sel == nil || sel.Depth() != picking.IncludeVertex || sel.Node() == nil || sel.Mesh() < 0 {
		return nil
	}
	return &gpu.VertexSelection{Node: sel.NodeID(), Mesh: sel.Mesh()}
}
