package scene

import (
	"github.com/canavar/canavar/canavar/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

type Kind int

const (
	KindDummy Kind = iota
	KindModel
	KindFreeCamera
	KindDummyCamera
	KindDirectionalLight
	KindPointLight
	KindSpotLight
	KindNozzleParticles
	KindTerrain
	KindHaze
	KindSky
	KindSun
	KindPersecutorCamera
	KindNozzleEffect
	KindFirecrackerEffect
)

func (k Kind) String() string {
	switch k {
	case KindDummy:
		return "Dummy"
	case KindModel:
		return "Model"
	case KindFreeCamera:
		return "Free Camera"
	case KindDummyCamera:
		return "Dummy Camera"
	case KindDirectionalLight:
		return "Directional Light"
	case KindPointLight:
		return "Point Light"
	case KindSpotLight:
		return "Spot Light"
	case KindNozzleParticles:
		return "Nozzle Particles"
	case KindTerrain:
		return "Terrain"
	case KindHaze:
		return "Haze"
	case KindSky:
		return "Sky"
	case KindSun:
		return "Sun"
	case KindPersecutorCamera:
		return "Persecutor Camera"
	case KindNozzleEffect:
		return "Nozzle Effect"
	case KindFirecrackerEffect:
		return "Firecracker Effect"
	default:
		return "Unknown"
	}
}

type Capability uint32

const (
	CapTransform Capability = 1 << iota
	CapModel
	CapMaterial
	CapLight
	CapCamera
	CapEmitter
	CapTerrain
	CapHaze
	CapSky
	CapSun
	CapNozzle
	CapFirecracker
)

// Capabilities lists what a node of kind k carries. Every kind has a transform.
func (k Kind) Capabilities() Capability {
	switch k {
	case KindModel:
		return CapTransform | CapModel | CapMaterial
	case KindFreeCamera, KindDummyCamera, KindPersecutorCamera:
		return CapTransform | CapCamera
	case KindDirectionalLight, KindPointLight, KindSpotLight:
		return CapTransform | CapLight
	case KindNozzleParticles:
		return CapTransform | CapEmitter
	case KindTerrain:
		return CapTransform | CapTerrain | CapMaterial
	case KindHaze:
		return CapTransform | CapHaze
	case KindSky:
		return CapTransform | CapSky
	case KindSun:
		return CapTransform | CapSun
	case KindNozzleEffect:
		return CapTransform | CapNozzle
	case KindFirecrackerEffect:
		return CapTransform | CapFirecracker
	default:
		return CapTransform
	}
}

// Renderable reports whether nodes of kind k produce geometry for the rasterizer.
func (k Kind) Renderable() bool {
	switch k {
	case KindModel, KindNozzleParticles, KindNozzleEffect, KindFirecrackerEffect:
		return true
	default:
		return false
	}
}

type Mesh struct {
	ID          int
	Name        string
	VertexCount int
}

type Model struct {
	Name   string
	Meshes []Mesh
}

func (m *Model) MeshByID(id int) (Mesh, bool) {
	for _, mesh := range m.Meshes {
		if mesh.ID == id {
			return mesh, true
		}
	}
	return Mesh{}, false
}

type Material struct {
	Color     mgl32.Vec4
	Ambient   float32
	Diffuse   float32
	Specular  float32
	Shininess float32
}

func DefaultMaterial() Material {
	return Material{
		Color:     mgl32.Vec4{1, 1, 1, 1},
		Ambient:   0.5,
		Diffuse:   0.6,
		Specular:  0.05,
		Shininess: 8,
	}
}

type Light struct {
	Color     mgl32.Vec4
	Ambient   float32
	Diffuse   float32
	Specular  float32
	Constant  float32
	Linear    float32
	Quadratic float32
	// CutOffAngle is in degrees and only used by spot lights.
	CutOffAngle float32
}

func defaultLight(k Kind) Light {
	l := Light{
		Color:     mgl32.Vec4{1, 1, 1, 1},
		Ambient:   0.25,
		Diffuse:   0.75,
		Specular:  0.25,
		Constant:  1,
		Linear:    0.05,
		Quadratic: 0.001,
	}
	if k == KindSpotLight {
		l.CutOffAngle = 30
	}
	return l
}

type Emitter struct {
	MaxParticles int
	Rate         float32
	Lifetime     float32
	Velocity     float32
}

// Haze fades distant fragments toward Color. Visibility falls off as exp(-(d*Density)^Gradient).
type Haze struct {
	Enabled  bool
	Color    mgl32.Vec4
	Density  float32
	Gradient float32
}

func DefaultHaze() Haze {
	return Haze{
		Enabled:  true,
		Color:    mgl32.Vec4{0.33, 0.38, 0.47, 1},
		Density:  1,
		Gradient: 1.5,
	}
}

type Sky struct {
	Albedo         float32
	Turbidity      float32
	NormalizedSunY float32
}

// Sun is the scene-wide directional light. Direction points from the sun toward the scene.
type Sun struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec4
	Ambient   float32
	Diffuse   float32
	Specular  float32
}

type NozzleEffect struct {
	MaxRadius   float32
	MaxLife     float32
	MaxDistance float32
	MinDistance float32
	Speed       float32
	Scale       float32
}

type FirecrackerEffect struct {
	// SpanAngle is the cone half angle in degrees.
	SpanAngle    float32
	Gravity      float32
	MinLife      float32
	MaxLife      float32
	InitialSpeed float32
	Damping      float32
	Scale        float32
	Loop         bool
}

// Has reports whether the node carries every capability in c.
func (n *Node) Has(c Capability) bool {
	return n.kind.Capabilities()&c == c
}

// Model returns nil unless the node has CapModel. The same holds for the other accessors.
func (n *Node) Model() *Model             { return n.model }
func (n *Node) Material() *Material       { return n.material }
func (n *Node) Light() *Light             { return n.light }
func (n *Node) Camera() *core.CameraState { return n.camera }
func (n *Node) Emitter() *Emitter         { return n.emitter }
func (n *Node) Haze() *Haze               { return n.haze }
func (n *Node) Sky() *Sky                 { return n.sky }
func (n *Node) Sun() *Sun                 { return n.sun }

func (n *Node) NozzleEffect() *NozzleEffect           { return n.nozzle }
func (n *Node) FirecrackerEffect() *FirecrackerEffect { return n.firecracker }

func (n *Node) attachCapabilities() {
	if n.Has(CapModel) {
		n.model = &Model{}
	}
	if n.Has(CapMaterial) {
		m := DefaultMaterial()
		n.material = &m
	}
	if n.Has(CapLight) {
		l := defaultLight(n.kind)
		n.light = &l
	}
	if n.Has(CapCamera) {
		n.camera = core.NewCameraState()
	}
	if n.Has(CapEmitter) {
		n.emitter = &Emitter{MaxParticles: 5000, Rate: 500, Lifetime: 2, Velocity: 10}
	}
	if n.Has(CapHaze) {
		h := DefaultHaze()
		n.haze = &h
	}
	if n.Has(CapSky) {
		n.sky = &Sky{Albedo: 0.1, Turbidity: 4, NormalizedSunY: 1.15}
	}
	if n.Has(CapSun) {
		n.sun = &Sun{
			Direction: mgl32.Vec3{0, -1, 0},
			Color:     mgl32.Vec4{1, 1, 1, 1},
			Ambient:   1,
			Diffuse:   0.75,
			Specular:  0.25,
		}
	}
	if n.Has(CapNozzle) {
		n.nozzle = &NozzleEffect{MaxRadius: 0.29, MaxLife: 0.05, MaxDistance: 18, MinDistance: 8, Speed: 7, Scale: 0.01}
	}
	if n.Has(CapFirecracker) {
		n.firecracker = &FirecrackerEffect{
			SpanAngle:    15,
			Gravity:      9.81,
			MinLife:      1,
			MaxLife:      5,
			InitialSpeed: 250,
			Damping:      1,
			Scale:        1,
			Loop:         true,
		}
	}
}
