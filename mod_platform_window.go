package canavar

import (
	"reflect"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string

	// Resized is set for the frame in which the framebuffer size changed.
	Resized bool
}

// Window exposes the GLFW handle for surface creation.
func (s *WindowState) Window() *glfw.Window { return s.windowGlfw }

func createWindowState(windowWidth int, windowHeight int, windowTitle string) (*WindowState, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw init")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // wgpu drives the surface
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}, nil
}

func (s *WindowState) Destroy() {
	if s.windowGlfw != nil {
		s.windowGlfw.Destroy()
		s.windowGlfw = nil
	}
	glfw.Terminate()
}

// PlatformWindowModule ensures a single shared GLFW window (WindowState) is created
// and made available as a resource for the GPU and input modules.
// Install is idempotent: if a WindowState resource already exists, it is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow fills in defaults for zero values.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Canavar"
	}
	return &PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if app.hasResource(reflect.TypeOf((*WindowState)(nil)).Elem()) {
		return
	}

	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		panic(err)
	}
	app.addResources(ws)
	app.UseSystem(
		System(windowSystem).
			InStage(PreUpdate),
	)
	app.Logger().Infof("window %q %dx%d", m.Title, m.Width, m.Height)
}

// windowSystem runs after input polling has pumped GLFW events.
func windowSystem(ws *WindowState, cmd *Commands) {
	if ws.windowGlfw.ShouldClose() {
		cmd.Quit()
		return
	}
	w, h := ws.windowGlfw.GetFramebufferSize()
	ws.Resized = w > 0 && h > 0 && (w != ws.WindowWidth || h != ws.WindowHeight)
	if ws.Resized {
		ws.WindowWidth, ws.WindowHeight = w, h
	}
}
