package picking

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/canavar/canavar/canavar/rt/scene"

	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

// Snapshot renders an identity target as a false color image scaled to size. Each node gets
// a stable color, pixels of highlight are red and empty pixels are black.
func Snapshot(rb Readback, target Target, size image.Point, highlight scene.NodeID) (*image.RGBA, error) {
	bounds := rb.Bounds()
	region, err := rb.ReadRegion(target, bounds)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot")
	}

	src := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	w := bounds.Dx()
	for i := 0; i < len(region)/TexelSize; i++ {
		id, ok := texelAt(region, i)
		src.SetRGBA(i%w, i/w, identityColor(id, ok, highlight))
	}

	if size == src.Rect.Size() {
		return src, nil
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func identityColor(id Identity, ok bool, highlight scene.NodeID) color.RGBA {
	switch {
	case !ok:
		return colornames.Black
	case id.Node == highlight:
		return colornames.Red
	}
	h := uint32(id.Node)*2654435761 ^ uint32(id.Mesh+1)*40503
	return color.RGBA{R: uint8(h >> 24), G: uint8(h >> 16), B: uint8(h >> 8), A: 0xff}
}

// WriteSnapshot encodes a full size snapshot as PNG.
func WriteSnapshot(w io.Writer, rb Readback, target Target, highlight scene.NodeID) error {
	img, err := Snapshot(rb, target, rb.Bounds().Size(), highlight)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
