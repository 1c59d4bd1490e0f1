package terrain

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Seed struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

func (s Seed) Vec3() mgl32.Vec3 { return mgl32.Vec3{s.X, s.Y, s.Z} }

// Params drive the height field. Changing any of them invalidates every resident tile.
type Params struct {
	Seed                   Seed    `json:"seed" yaml:"seed"`
	Octaves                int     `json:"octaves" yaml:"octaves"`
	Amplitude              float32 `json:"amplitude" yaml:"amplitude"`
	Frequency              float32 `json:"frequency" yaml:"frequency"`
	Power                  float32 `json:"power" yaml:"power"`
	TessellationMultiplier float32 `json:"tessellation_multiplier" yaml:"tessellation_multiplier"`
	GrassCoverage          float32 `json:"grass_coverage" yaml:"grass_coverage"`
}

func DefaultParams() Params {
	return Params{
		Seed:                   Seed{1, 1, 1},
		Octaves:                13,
		Amplitude:              20,
		Frequency:              0.01,
		Power:                  3,
		TessellationMultiplier: 1,
		GrassCoverage:          0.45,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Octaves < 1:
		return errors.Wrapf(ErrInvalidParams, "octaves %d < 1", p.Octaves)
	case p.Frequency <= 0:
		return errors.Wrapf(ErrInvalidParams, "frequency %v <= 0", p.Frequency)
	case p.Power <= 0:
		return errors.Wrapf(ErrInvalidParams, "power %v <= 0", p.Power)
	case p.TessellationMultiplier <= 0:
		return errors.Wrapf(ErrInvalidParams, "tessellation multiplier %v <= 0", p.TessellationMultiplier)
	case p.GrassCoverage < 0 || p.GrassCoverage > 1:
		return errors.Wrapf(ErrInvalidParams, "grass coverage %v outside [0, 1]", p.GrassCoverage)
	}
	return nil
}

// Material is the terrain's lighting response. It does not affect generation.
type Material struct {
	Ambient   float32 `json:"ambient" yaml:"ambient"`
	Diffuse   float32 `json:"diffuse" yaml:"diffuse"`
	Specular  float32 `json:"specular" yaml:"specular"`
	Shininess float32 `json:"shininess" yaml:"shininess"`
}

func DefaultMaterial() Material {
	return Material{Ambient: 0.5, Diffuse: 0.6, Specular: 0.05, Shininess: 8}
}

// Document is the persisted form of a terrain node. Keys are flat apart from the seed object.
type Document struct {
	Params   `yaml:",inline"`
	Material `yaml:",inline"`
	Enabled  bool `json:"enabled" yaml:"enabled"`
}

func DefaultDocument() Document {
	return Document{Params: DefaultParams(), Material: DefaultMaterial(), Enabled: true}
}

func (d Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "    ")
}

// UnmarshalDocument decodes data over current, so keys absent from data keep their current value.
func UnmarshalDocument(data []byte, current Document) (Document, error) {
	doc := current
	if err := json.Unmarshal(data, &doc); err != nil {
		return current, errors.Wrap(err, "decode terrain document")
	}
	if err := doc.Params.Validate(); err != nil {
		return current, err
	}
	return doc, nil
}
