package canavar

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraSprintFactor = 4
	cameraRushFactor   = 400
)

// FlyingCameraModule moves the active camera: drag with the middle button to look,
// W/S/A/D/E/Q to move, Shift and Control to go faster. With a TerrainModule installed
// first the camera stays GroundClearance above the terrain.
type FlyingCameraModule struct {
	GroundClearance float32
}

type flyingCamera struct {
	Move mgl32.Vec3
	Look mgl32.Vec2
}

var flyKeys = map[int]mgl32.Vec3{
	KeyW: {0, 0, -1},
	KeyS: {0, 0, 1},
	KeyA: {-1, 0, 0},
	KeyD: {1, 0, 0},
	KeyE: {0, 1, 0},
	KeyQ: {0, -1, 0},
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&flyingCamera{})
	app.UseSystem(
		System(flyingCameraInputSystem).
			InStage(Update),
	)
	app.UseSystem(
		System(flyingCameraControlSystem).
			InStage(Update),
	)

	if _, ok := Resource[TerrainState](app); ok {
		clearance := m.GroundClearance
		app.UseSystem(
			System(func(cam *ActiveCamera, ts *TerrainState) {
				keepAboveGround(cam, ts, clearance)
			}).InStage(Update),
		)
	}
}

func flyingCameraInputSystem(input *Input, fly *flyingCamera) {
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	fly.Move = mgl32.Vec3{}
	for key, dir := range flyKeys {
		if input.Pressed[key] {
			fly.Move = fly.Move.Add(dir)
		}
	}

	if input.MouseCaptured || input.Pressed[MouseButtonMiddle] {
		fly.Look = mgl32.Vec2{float32(input.MouseDeltaX), float32(input.MouseDeltaY)}
	} else {
		fly.Look = mgl32.Vec2{}
	}

	speed := float32(1)
	if input.Pressed[KeyControl] {
		speed = cameraRushFactor
	} else if input.Pressed[KeyShift] {
		speed = cameraSprintFactor
	}
	fly.Move = fly.Move.Mul(speed)
}

func flyingCameraControlSystem(fly *flyingCamera, cam *ActiveCamera, time *Time) {
	dt := time.Seconds()
	if dt <= 0 {
		return
	}
	state := cam.State()

	if fly.Look.Len() > 0 {
		state.Yaw += fly.Look.X() * state.Sensitivity
		state.Pitch -= fly.Look.Y() * state.Sensitivity
		state.ClampPitch()
		cam.Node.SetWorldRotation(state.Rotation())
	}

	if fly.Move.Len() > 0 {
		step := cam.Node.WorldRotation().Rotate(fly.Move).Mul(state.Speed * dt)
		cam.Node.SetWorldPosition(cam.Node.WorldPosition().Add(step))
	}
}

func keepAboveGround(cam *ActiveCamera, ts *TerrainState, clearance float32) {
	if !ts.Document.Enabled {
		return
	}
	p := cam.Node.WorldPosition()
	floor := ts.Grid.HeightAt(p.X(), p.Z()) + clearance
	if p.Y() < floor {
		p[1] = floor
		cam.Node.SetWorldPosition(p)
	}
}
