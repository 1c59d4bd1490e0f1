package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is the lens and orientation of a camera. The camera's position lives on its
// scene node so the terrain grid and the hierarchy agree on where it is.
type CameraState struct {
	Yaw         float32 // radians, 0 looks down -Z
	Pitch       float32 // radians
	Speed       float32
	Sensitivity float32

	VerticalFov float32 // degrees
	AspectRatio float32
	ZNear       float32
	ZFar        float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Speed:       10.0,
		Sensitivity: 0.003,
		VerticalFov: 60.0,
		AspectRatio: 16.0 / 9.0,
		ZNear:       0.1,
		ZFar:        10000.0,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// Y-up: yaw around Y, pitch lifts towards +Y
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

// Rotation is the orientation matching GetForward, suitable for a node's world rotation.
func (c *CameraState) Rotation() mgl32.Quat {
	yaw := mgl32.QuatRotate(-c.Yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Normalize()
}

// ClampPitch keeps the pitch just short of straight up/down.
func (c *CameraState) ClampPitch() {
	limit := mgl32.DegToRad(89.0)
	if c.Pitch > limit {
		c.Pitch = limit
	}
	if c.Pitch < -limit {
		c.Pitch = -limit
	}
}

func (c *CameraState) GetViewMatrix(eye mgl32.Vec3) mgl32.Mat4 {
	target := eye.Add(c.GetForward())
	up := mgl32.Vec3{0, 1, 0}
	return mgl32.LookAtV(eye, target, up)
}

func (c *CameraState) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.VerticalFov), c.AspectRatio, c.ZNear, c.ZFar)
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0.
func (c *CameraState) ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0) // Left
	planes[1] = r3.Sub(r0) // Right
	planes[2] = r3.Add(r1) // Bottom
	planes[3] = r3.Sub(r1) // Top
	planes[4] = r3.Add(r2) // Near (OpenGL-style -1..1)
	planes[5] = r3.Sub(r2) // Far

	for i := 0; i < 6; i++ {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return planes
}

// AABBInFrustum checks if an AABB is visible within the frustum defined by 6 planes.
// Planes are expected to be in Ax+By+Cz+D=0 form, with the normal pointing INSIDE.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]

		// Most-inside corner; if even that one is behind the plane the box is outside.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}

		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}
