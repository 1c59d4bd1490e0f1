package gpu

import (
	"image"

	"github.com/canavar/canavar/canavar/rt/picking"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const IdentityFormat = wgpu.TextureFormatRGBA32Uint

// IdentityTargets holds the mesh and vertex identity render targets and reads them back.
type IdentityTargets struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	width, height uint32
	textures      [2]*wgpu.Texture
	views         [2]*wgpu.TextureView
	depth         *wgpu.Texture
	depthView     *wgpu.TextureView
}

func NewIdentityTargets(device *wgpu.Device, width, height int) (*IdentityTargets, error) {
	t := &IdentityTargets{Device: device, Queue: device.GetQueue()}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize recreates both targets and the depth buffer shared by the mesh pass. Contents are lost.
func (t *IdentityTargets) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("identity target size %dx%d", width, height)
	}
	t.Release()
	t.width, t.height = uint32(width), uint32(height)

	labels := [2]string{"Identity Mesh", "Identity Vertex"}
	for i := range t.textures {
		tex, err := t.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         labels[i],
			Size:          wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        IdentityFormat,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		})
		if err != nil {
			return errors.Wrapf(err, "create %s target", labels[i])
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return errors.Wrapf(err, "create %s view", labels[i])
		}
		t.textures[i] = tex
		t.views[i] = view
	}

	depth, err := t.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Identity Depth",
		Size:          wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        IdentityDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return errors.Wrap(err, "create identity depth")
	}
	depthView, err := depth.CreateView(nil)
	if err != nil {
		depth.Release()
		return errors.Wrap(err, "create identity depth view")
	}
	t.depth, t.depthView = depth, depthView
	return nil
}

func (t *IdentityTargets) View(target picking.Target) *wgpu.TextureView {
	return t.views[target]
}

// ColorAttachment clears target to zero, which decodes as no hit.
func (t *IdentityTargets) ColorAttachment(target picking.Target) wgpu.RenderPassColorAttachment {
	return wgpu.RenderPassColorAttachment{
		View:       t.views[target],
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
	}
}

// DepthAttachment clears depth to the far plane. Depth is not needed after the pass.
func (t *IdentityTargets) DepthAttachment() *wgpu.RenderPassDepthStencilAttachment {
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            t.depthView,
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpDiscard,
		DepthClearValue: 1,
	}
}

func (t *IdentityTargets) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(t.width), int(t.height))
}

// ReadRegion copies rect out of target and waits for the copy. Picking happens once per
// click, so the stall is acceptable.
func (t *IdentityTargets) ReadRegion(target picking.Target, rect image.Rectangle) ([]byte, error) {
	if target != picking.TargetMesh && target != picking.TargetVertex {
		return nil, errors.Errorf("unknown identity target %d", target)
	}
	if rect.Empty() || !rect.In(t.Bounds()) {
		return nil, errors.Wrapf(picking.ErrInvalidPickTarget, "region %v outside %v", rect, t.Bounds())
	}

	w, h := uint32(rect.Dx()), uint32(rect.Dy())
	bytesPerRow := alignedBytesPerRow(w)
	size := uint64(bytesPerRow * h)

	buf, err := t.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Identity Readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create readback buffer")
	}
	defer buf.Release()

	encoder, err := t.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create encoder")
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.textures[target],
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(rect.Min.X), Y: uint32(rect.Min.Y), Z: 0},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: h,
			},
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, errors.Wrap(err, "finish encoder")
	}
	defer cmd.Release()
	t.Queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, errors.Wrap(err, "map readback buffer")
	}
	t.Device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.Errorf("map readback buffer: status %s", status.String())
	}

	out := unpackRows(buf.GetMappedRange(0, uint(size)), w, h, bytesPerRow)
	buf.Unmap()
	return out, nil
}

func (t *IdentityTargets) Release() {
	for i := range t.textures {
		if t.views[i] != nil {
			t.views[i].Release()
			t.views[i] = nil
		}
		if t.textures[i] != nil {
			t.textures[i].Release()
			t.textures[i] = nil
		}
	}
	if t.depthView != nil {
		t.depthView.Release()
		t.depthView = nil
	}
	if t.depth != nil {
		t.depth.Release()
		t.depth = nil
	}
}

// alignedBytesPerRow pads a row of w identity texels to the 256 byte copy alignment.
func alignedBytesPerRow(w uint32) uint32 {
	return (w*picking.TexelSize + 255) &^ uint32(255)
}

// unpackRows drops the row padding of a texture copy.
func unpackRows(mapped []byte, w, h, bytesPerRow uint32) []byte {
	rowBytes := w * picking.TexelSize
	out := make([]byte, 0, rowBytes*h)
	for y := uint32(0); y < h; y++ {
		start := y * bytesPerRow
		out = append(out, mapped[start:start+rowBytes]...)
	}
	return out
}
