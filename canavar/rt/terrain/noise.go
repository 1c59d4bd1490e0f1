package terrain

import (
	"github.com/chewxy/math32"
)

// 2D simplex noise over a fixed permutation table, returning values in roughly [-1, 1].

var perm [512]uint8

func init() {
	// Ken Perlin's reference permutation, repeated once so lookups never wrap.
	base := [256]uint8{151, 160, 137, 91, 90, 15,
		131, 13, 201, 95, 96, 53, 194, 233, 7, 225, 140, 36, 103, 30, 69, 142, 8, 99, 37, 240, 21, 10, 23,
		190, 6, 148, 247, 120, 234, 75, 0, 26, 197, 62, 94, 252, 219, 203, 117, 35, 11, 32, 57, 177, 33,
		88, 237, 149, 56, 87, 174, 20, 125, 136, 171, 168, 68, 175, 74, 165, 71, 134, 139, 48, 27, 166,
		77, 146, 158, 231, 83, 111, 229, 122, 60, 211, 133, 230, 220, 105, 92, 41, 55, 46, 245, 40, 244,
		102, 143, 54, 65, 25, 63, 161, 1, 216, 80, 73, 209, 76, 132, 187, 208, 89, 18, 169, 200, 196,
		135, 130, 116, 188, 159, 86, 164, 100, 109, 198, 173, 186, 3, 64, 52, 217, 226, 250, 124, 123,
		5, 202, 38, 147, 118, 126, 255, 82, 85, 212, 207, 206, 59, 227, 47, 16, 58, 17, 182, 189, 28, 42,
		223, 183, 170, 213, 119, 248, 152, 2, 44, 154, 163, 70, 221, 153, 101, 155, 167, 43, 172, 9,
		129, 22, 39, 253, 19, 98, 108, 110, 79, 113, 224, 232, 178, 185, 112, 104, 218, 246, 97, 228,
		251, 34, 242, 193, 238, 210, 144, 12, 191, 179, 162, 241, 81, 51, 145, 235, 249, 14, 239, 107,
		49, 192, 214, 31, 181, 199, 106, 157, 184, 84, 204, 176, 115, 121, 50, 45, 127, 4, 150, 254,
		138, 236, 205, 93, 222, 114, 67, 29, 24, 72, 243, 141, 128, 195, 78, 66, 215, 61, 156, 180,
	}
	for i := range perm {
		perm[i] = base[i&255]
	}
}

const (
	skewF2   = 0.366025403 // (sqrt(3)-1)/2
	unskewG2 = 0.211324865 // (3-sqrt(3))/6
)

var grad2 = [8][2]float32{
	{-1, -1}, {1, 0}, {-1, 0}, {1, 1},
	{-1, 1}, {0, -1}, {0, 1}, {1, -1},
}

func corner(hash uint8, x, y float32) float32 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	g := grad2[hash&7]
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

func simplex2(x, y float32) float32 {
	s := (x + y) * skewF2
	i := int(math32.Floor(x + s))
	j := int(math32.Floor(y + s))

	t := float32(i+j) * unskewG2
	x0 := x - (float32(i) - t)
	y0 := y - (float32(j) - t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}

	x1 := x0 - float32(i1) + unskewG2
	y1 := y0 - float32(j1) + unskewG2
	x2 := x0 - 1 + 2*unskewG2
	y2 := y0 - 1 + 2*unskewG2

	ii := i & 255
	jj := j & 255

	n0 := corner(perm[ii+int(perm[jj])], x0, y0)
	n1 := corner(perm[ii+i1+int(perm[jj+j1])], x1, y1)
	n2 := corner(perm[ii+1+int(perm[jj+1])], x2, y2)

	return 40 * (n0 + n1 + n2)
}

// field is the deterministic height function shared by generation and height queries.
type field struct {
	params Params
	offset [2]float32
}

func newField(p Params) field {
	// Each seed component moves the sampling window to an unrelated region of noise space.
	return field{
		params: p,
		offset: [2]float32{
			p.Seed.X*101.37 + p.Seed.Y*17.11,
			p.Seed.Z*73.91 - p.Seed.Y*29.53,
		},
	}
}

// fbm sums octaves of simplex noise and normalizes the result to [0, 1].
func (f field) fbm(x, z float32) float32 {
	var (
		amplitude float32 = 1
		frequency         = f.params.Frequency
		sum       float32
		norm      float32
	)
	for o := 0; o < f.params.Octaves; o++ {
		n := simplex2(x*frequency+f.offset[0], z*frequency+f.offset[1])
		sum += (n + 1) / 2 * amplitude
		norm += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	v := sum / norm
	return math32.Max(0, math32.Min(1, v))
}

// height is amplitude * fbm^power.
func (f field) height(x, z float32) float32 {
	return f.params.Amplitude * math32.Pow(f.fbm(x, z), f.params.Power)
}

// grass is the grass weight at a vertex with the given up-component of its normal.
func (f field) grass(normalY float32) float32 {
	c := f.params.GrassCoverage
	if c <= 0 {
		return 0
	}
	flatness := math32.Max(0, math32.Min(1, (normalY-(1-c))/c))
	return flatness * flatness * (3 - 2*flatness)
}
