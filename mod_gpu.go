package canavar

import (
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/pkg/errors"
)

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

func (g *GpuState) Device() *wgpu.Device { return g.device }
func (g *GpuState) Queue() *wgpu.Queue   { return g.queue }

func (g *GpuState) SurfaceFormat() wgpu.TextureFormat { return g.surfaceConfig.Format }

func createGpuState(s *WindowState) (*GpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	// wraps GLFW window into a wgpu surface.
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, errors.Wrap(err, "request adapter")
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Editor Device",
	})
	if err != nil {
		return nil, errors.Wrap(err, "request device")
	}

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(s.WindowWidth),
		Height:      uint32(s.WindowHeight),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         device.GetQueue(),
		surfaceConfig: &surfaceConfig,
	}, nil
}

func (g *GpuState) resize(width, height int) {
	g.surfaceConfig.Width = uint32(width)
	g.surfaceConfig.Height = uint32(height)
	g.surface.Configure(g.adapter, g.device, g.surfaceConfig)
}

func (g *GpuState) Release() {
	g.queue.Release()
	g.device.Release()
	g.adapter.Release()
	g.surface.Release()
}

// GpuModule opens the wgpu device on the shared window. Install after PlatformWindowModule.
type GpuModule struct{}

func (m GpuModule) Install(app *App, cmd *Commands) {
	if app.hasResource(reflect.TypeOf((*GpuState)(nil)).Elem()) {
		return
	}
	ws, ok := Resource[WindowState](app)
	if !ok {
		panic("GpuModule requires PlatformWindowModule")
	}
	gs, err := createGpuState(ws)
	if err != nil {
		panic(err)
	}
	app.addResources(gs)
	app.UseSystem(
		System(surfaceResizeSystem).
			InStage(PreRender),
	)
}

func surfaceResizeSystem(ws *WindowState, gs *GpuState) {
	if ws.Resized {
		gs.resize(ws.WindowWidth, ws.WindowHeight)
	}
}
