package canavar

import (
	"math"
	"os"

	"github.com/canavar/canavar/canavar/rt/gpu"
	"github.com/canavar/canavar/canavar/rt/picking"
	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/pkg/errors"
)

// PickingModule resolves left clicks into the selection. With a GpuModule installed
// first it reads the GPU identity targets, otherwise an in-memory picking.Buffer.
//
// Keys: 1/2/3 pick node, mesh or vertex depth, Escape clears, Delete removes the
// selected node, P writes the mesh identity target to SnapshotPath.
type PickingModule struct {
	VertexRadius int
	Width        int
	Height       int
	SnapshotPath string
}

func NewPickingModule() PickingModule {
	return PickingModule{
		VertexRadius: picking.DefaultVertexRadius,
		Width:        1280,
		Height:       720,
		SnapshotPath: "identity.png",
	}
}

type PickingState struct {
	Resolver *picking.Resolver
	Last     picking.Result

	// Exactly one of Targets and Buffer is set.
	Targets *gpu.IdentityTargets
	Buffer  *picking.Buffer

	snapshotPath string
	log          Logger
}

func (ps *PickingState) Selection() *picking.Selection { return ps.Resolver.Selection() }

func (ps *PickingState) readback() picking.Readback {
	if ps.Targets != nil {
		return ps.Targets
	}
	return ps.Buffer
}

// Resize follows the framebuffer. Identity contents are lost until the next frame.
func (ps *PickingState) Resize(width, height int) error {
	if ps.Targets != nil {
		return ps.Targets.Resize(width, height)
	}
	ps.Buffer.Resize(width, height)
	return nil
}

// WriteSnapshot saves the mesh identity target as a PNG with the selected node in red.
func (ps *PickingState) WriteSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "snapshot")
	}
	defer f.Close()
	return picking.WriteSnapshot(f, ps.readback(), picking.TargetMesh, ps.Selection().NodeID())
}

func (m PickingModule) Install(app *App, cmd *Commands) {
	graph, ok := Resource[scene.Graph](app)
	if !ok {
		panic("PickingModule requires HierarchyModule")
	}

	width, height := m.Width, m.Height
	if ws, ok := Resource[WindowState](app); ok {
		width, height = ws.WindowWidth, ws.WindowHeight
	}

	ps := &PickingState{snapshotPath: m.SnapshotPath, log: app.Logger()}
	if gs, ok := Resource[GpuState](app); ok {
		targets, err := gpu.NewIdentityTargets(gs.device, width, height)
		if err != nil {
			panic(err)
		}
		ps.Targets = targets
	} else {
		ps.Buffer = picking.NewBuffer(width, height)
	}

	ps.Resolver = picking.NewResolver(ps.readback(), graph, nil, app.Logger())
	ps.Resolver.SetVertexRadius(m.VertexRadius)
	cmd.AddResources(ps)

	app.UseSystem(
		System(pickingSystem).
			InStage(Update),
	)
	if _, ok := Resource[WindowState](app); ok {
		app.UseSystem(
			System(pickingResizeSystem).
				InStage(PreRender),
		)
	}
}

// depthKeys are applied in this order, so the deepest key pressed in a frame wins.
var depthKeys = []struct {
	key   int
	depth picking.Depth
}{
	{Key1, picking.NodeOnly},
	{Key2, picking.IncludeMesh},
	{Key3, picking.IncludeVertex},
}

func pickingSystem(ps *PickingState, input *Input, graph *scene.Graph, cam *ActiveCamera, cmd *Commands) {
	sel := ps.Selection()
	if sel.Validate(graph) {
		ps.log.Debugf("picking: selection dropped removed state")
	}

	for _, k := range depthKeys {
		if input.JustPressed[k.key] {
			if err := ps.Resolver.SetSelectionDepth(k.depth); err != nil {
				ps.log.Warnf("picking: %v", err)
			}
		}
	}

	switch {
	case input.JustPressed[KeyEscape]:
		sel.ClearNode()
	case input.JustPressed[KeyDelete]:
		if n := sel.Node(); n != nil && n != cam.Node {
			cmd.RemoveNode(n.ID())
		}
	case input.JustPressed[KeyP]:
		if err := ps.WriteSnapshot(ps.snapshotPath); err != nil {
			ps.log.Errorf("picking: %v", err)
		} else {
			ps.log.Infof("picking: wrote %s", ps.snapshotPath)
		}
	}

	if input.JustPressed[MouseButtonLeft] && !input.MouseCaptured {
		x, y := toFramebuffer(input, ps.readback())
		ps.Last = ps.Resolver.Click(x, y)
		if ps.Last.Success {
			ps.log.Debugf("picking: node %d mesh %d vertex %d", ps.Last.NodeID, ps.Last.MeshID, ps.Last.VertexID)
		} else {
			ps.log.Debugf("picking: (%d,%d) %v", x, y, ps.Last.Err)
		}
	}
}

// toFramebuffer maps window coordinates to identity target pixels, which differ on
// high density displays. Positions left of or above the window map to negative pixels.
func toFramebuffer(input *Input, rb picking.Readback) (int, int) {
	x, y := input.MouseX, input.MouseY
	b := rb.Bounds()
	if input.WindowWidth > 0 && input.WindowHeight > 0 {
		x = x * float64(b.Dx()) / float64(input.WindowWidth)
		y = y * float64(b.Dy()) / float64(input.WindowHeight)
	}
	return int(math.Floor(x)), int(math.Floor(y))
}

func pickingResizeSystem(ws *WindowState, ps *PickingState) {
	if !ws.Resized {
		return
	}
	if err := ps.Resize(ws.WindowWidth, ws.WindowHeight); err != nil {
		ps.log.Errorf("picking: %v", err)
	}
}
