package canavar

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyA int = iota
	KeyD
	KeyE
	KeyQ
	KeyS
	KeyW
	Key1
	Key2
	Key3
	KeyR
	KeyP
	KeySpace
	KeyEscape
	KeyTab
	KeyDelete
	KeyF5
	KeyShift
	KeyControl
	KeyLeftAlt
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

type InputModule struct{}

// Input is the per-frame keyboard and mouse state. Mouse coordinates are in window pixels.
type Input struct {
	Pressed [keyCount]bool

	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool

	WindowWidth, WindowHeight int
}

// Press records a transition to down. Used by the polling system and by tests.
func (input *Input) Press(key int) {
	if !input.Pressed[key] {
		input.JustPressed[key] = true
	}
	input.Pressed[key] = true
}

func (input *Input) Release(key int) {
	if input.Pressed[key] {
		input.JustReleased[key] = true
	}
	input.Pressed[key] = false
}

// MoveMouse sets the cursor position and the delta since the previous position.
func (input *Input) MoveMouse(x, y float64) {
	input.MouseDeltaX = x - input.MouseX
	input.MouseDeltaY = y - input.MouseY
	input.MouseX = x
	input.MouseY = y
}

// EndFrame clears edge state.
func (input *Input) EndFrame() {
	input.JustPressed = [keyCount]bool{}
	input.JustReleased = [keyCount]bool{}
	input.MouseDeltaX = 0
	input.MouseDeltaY = 0
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	app.UseSystem(
		System(inputSystem).
			InStage(Prelude),
	)
	app.UseSystem(
		System(inputEndFrameSystem).
			InStage(Finale),
	)
}

func inputSystem(s *WindowState, input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		if glfw.Press == s.windowGlfw.GetKey(glfwKey) {
			input.Press(key)
		} else {
			input.Release(key)
		}
	}

	for btn, glfwBtn := range buttonToGlfw {
		if glfw.Press == s.windowGlfw.GetMouseButton(glfwBtn) {
			input.Press(btn)
		} else {
			input.Release(btn)
		}
	}

	input.MoveMouse(s.windowGlfw.GetCursorPos())
	input.WindowWidth, input.WindowHeight = s.windowGlfw.GetSize()

	if input.MouseCaptured {
		s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

func inputEndFrameSystem(input *Input) {
	input.EndFrame()
}

var keyToGlfw = map[int]glfw.Key{
	KeyA:       glfw.KeyA,
	KeyD:       glfw.KeyD,
	KeyE:       glfw.KeyE,
	KeyQ:       glfw.KeyQ,
	KeyS:       glfw.KeyS,
	KeyW:       glfw.KeyW,
	Key1:       glfw.Key1,
	Key2:       glfw.Key2,
	Key3:       glfw.Key3,
	KeyR:       glfw.KeyR,
	KeyP:       glfw.KeyP,
	KeySpace:   glfw.KeySpace,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyDelete:  glfw.KeyDelete,
	KeyF5:      glfw.KeyF5,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
	KeyLeftAlt: glfw.KeyLeftAlt,
}

var buttonToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}
