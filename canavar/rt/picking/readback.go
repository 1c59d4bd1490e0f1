package picking

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
)

// Readback copies identity texels out of a render target.
type Readback interface {
	// Bounds is the viewport the identity targets cover.
	Bounds() image.Rectangle
	// ReadRegion returns rect's texels row by row, TexelSize bytes each.
	ReadRegion(target Target, rect image.Rectangle) ([]byte, error)
}

// Buffer is an in-memory pair of identity targets. It backs headless runs and tests.
type Buffer struct {
	width, height int
	layers        [2][]byte
}

func NewBuffer(width, height int) *Buffer {
	b := &Buffer{}
	b.Resize(width, height)
	return b
}

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Resize reallocates both targets, clearing them.
func (b *Buffer) Resize(width, height int) {
	b.width, b.height = width, height
	for i := range b.layers {
		b.layers[i] = make([]byte, width*height*TexelSize)
	}
}

func (b *Buffer) Clear() {
	for i := range b.layers {
		clear(b.layers[i])
	}
}

func (b *Buffer) Set(target Target, x, y int, id Identity) {
	if target != TargetMesh && target != TargetVertex || !image.Pt(x, y).In(b.Bounds()) {
		return
	}
	texel := Encode(id)
	off := (y*b.width + x) * TexelSize
	copy(b.layers[target][off:off+TexelSize], texel[:])
}

// FillRect writes id into every pixel of rect that lies in the viewport.
func (b *Buffer) FillRect(target Target, rect image.Rectangle, id Identity) {
	rect = rect.Intersect(b.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			b.Set(target, x, y, id)
		}
	}
}

func (b *Buffer) ReadRegion(target Target, rect image.Rectangle) ([]byte, error) {
	if target != TargetMesh && target != TargetVertex {
		return nil, errors.Errorf("unknown identity target %d", target)
	}
	if rect.Empty() || !rect.In(b.Bounds()) {
		return nil, errors.Wrapf(ErrInvalidPickTarget, "region %v outside %v", rect, b.Bounds())
	}
	out := make([]byte, 0, rect.Dx()*rect.Dy()*TexelSize)
	layer := b.layers[target]
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		start := (y*b.width + rect.Min.X) * TexelSize
		out = append(out, layer[start:start+rect.Dx()*TexelSize]...)
	}
	return out, nil
}

// texelAt decodes the texel at index i of a region read.
func texelAt(region []byte, i int) (Identity, bool) {
	return Decode(region[i*TexelSize : (i+1)*TexelSize])
}

// rawNode reads the encoded node word of a texel without decoding it.
func rawNode(texel []byte) uint32 {
	return binary.LittleEndian.Uint32(texel[0:4])
}
