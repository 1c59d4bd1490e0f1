package canavar

import (
	"reflect"

	"github.com/canavar/canavar/canavar/rt/core"
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// HierarchyModule provides the scene graph, the active camera and the per-frame render list.
type HierarchyModule struct {
	CameraPosition mgl32.Vec3
}

// ActiveCamera is the node the view is rendered from.
type ActiveCamera struct {
	Node *scene.Node
}

func (c *ActiveCamera) State() *core.CameraState { return c.Node.Camera() }

func (c *ActiveCamera) Position() mgl32.Vec3 { return c.Node.WorldTranslation() }

func (c *ActiveCamera) Forward() mgl32.Vec3 {
	return c.Node.WorldRotation().Rotate(mgl32.Vec3{0, 0, -1})
}

func (c *ActiveCamera) ViewMatrix() mgl32.Mat4 {
	eye := c.Position()
	up := c.Node.WorldRotation().Rotate(mgl32.Vec3{0, 1, 0})
	return mgl32.LookAtV(eye, eye.Add(c.Forward()), up)
}

func (c *ActiveCamera) ViewProjection() mgl32.Mat4 {
	return c.State().GetProjectionMatrix().Mul4(c.ViewMatrix())
}

func (c *ActiveCamera) Frustum() [6]mgl32.Vec4 {
	return c.State().ExtractFrustum(c.ViewProjection())
}

// RenderItem is one renderable node with its world transform for this frame.
type RenderItem struct {
	Node  scene.NodeID
	Kind  scene.Kind
	World mgl32.Mat4
}

type RenderList struct {
	Items []RenderItem
}

func (HierarchyModule) installGraph(app *App) *scene.Graph {
	if g, ok := Resource[scene.Graph](app); ok {
		return g
	}
	g := scene.NewGraph()
	app.addResources(g)
	return g
}

func (m HierarchyModule) Install(app *App, cmd *Commands) {
	graph := m.installGraph(app)

	if !app.hasResource(reflect.TypeOf((*ActiveCamera)(nil)).Elem()) {
		cam := graph.Create(scene.KindFreeCamera, "")
		cam.SetWorldPosition(m.CameraPosition)
		cam.SetWorldRotation(cam.Camera().Rotation())
		cmd.AddResources(&ActiveCamera{Node: cam})
	}
	cmd.AddResources(&RenderList{})

	app.UseSystem(
		System(cameraAspectSystem).
			InStage(PreRender),
	)
	app.UseSystem(
		System(renderListSystem).
			InStage(PreRender),
	)
}

func renderListSystem(graph *scene.Graph, list *RenderList) {
	list.Items = list.Items[:0]
	graph.Walk(func(n *scene.Node, depth int) bool {
		if n.Kind().Renderable() {
			list.Items = append(list.Items, RenderItem{
				Node:  n.ID(),
				Kind:  n.Kind(),
				World: n.WorldTransform(),
			})
		}
		return true
	})
}

func cameraAspectSystem(cam *ActiveCamera, input *Input) {
	if input.WindowWidth > 0 && input.WindowHeight > 0 {
		cam.State().AspectRatio = float32(input.WindowWidth) / float32(input.WindowHeight)
	}
}
