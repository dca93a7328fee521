// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterdemo

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the row alignment required for texture-to-buffer copies.
const copyPitchAlignment = 256

// offscreenTarget is a render target plus staging buffer used when frames
// are captured instead of presented.
type offscreenTarget struct {
	tex     hal.Texture
	view    hal.TextureView
	staging hal.Buffer

	width, height uint32
	alignedRow    uint32
}

func alignedBytesPerRow(width uint32) uint32 {
	return (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

func createOffscreen(device hal.Device, width, height int, format gputypes.TextureFormat) (_ *offscreenTarget, err error) {
	t := &offscreenTarget{width: uint32(width), height: uint32(height)}
	t.alignedRow = alignedBytesPerRow(t.width)
	defer func() {
		if err != nil {
			t.destroy(device)
		}
	}()

	t.tex, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         "capture_target",
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create capture texture: %w", err)
	}
	t.view, err = device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         "capture_target_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create capture view: %w", err)
	}
	t.staging, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "capture_staging",
		Size:  uint64(t.alignedRow) * uint64(t.height),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create capture staging buffer: %w", err)
	}
	return t, nil
}

func (t *offscreenTarget) destroy(device hal.Device) {
	if t.staging != nil {
		device.DestroyBuffer(t.staging)
		t.staging = nil
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// Capture renders the frame at elapsed into an offscreen target and reads
// it back. It waits for the GPU, so the renderer is idle on return.
func (r *Renderer) Capture(elapsed time.Duration) (*image.RGBA, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.offscreen == nil {
		t, err := createOffscreen(r.dev.Device, r.width, r.height, r.format)
		if err != nil {
			return nil, err
		}
		r.offscreen = t
	}
	t := r.offscreen

	if err := r.RenderFrame(elapsed, t.view); err != nil {
		return nil, err
	}
	if err := r.submitReadback(t); err != nil {
		return nil, err
	}
	if err := r.waitIdle(); err != nil {
		return nil, err
	}

	return r.readback(t)
}

// readback maps the staging buffer and unpacks it into an image.
func (r *Renderer) readback(t *offscreenTarget) (*image.RGBA, error) {
	size := uint64(t.alignedRow) * uint64(t.height)
	mapping, err := r.dev.Device.MapBuffer(t.staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map capture staging buffer: %w", err)
	}
	img := unpackRows(unsafe.Slice((*byte)(mapping.Ptr), size),
		int(t.width), int(t.height), int(t.alignedRow), isBGRA(r.format))
	if err := r.dev.Device.UnmapBuffer(t.staging); err != nil {
		return nil, fmt.Errorf("unmap capture staging buffer: %w", err)
	}
	return img, nil
}

// submitReadback copies the offscreen target into its staging buffer.
func (r *Renderer) submitReadback(t *offscreenTarget) error {
	encoder, err := r.dev.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "capture_encoder",
	})
	if err != nil {
		return fmt.Errorf("create capture encoder: %w", err)
	}
	if err := encoder.BeginEncoding("capture_copy"); err != nil {
		return fmt.Errorf("begin capture encoding: %w", err)
	}

	// The target leaves the render pass in attachment layout; copies need
	// it as a transfer source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, t.staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: t.alignedRow, RowsPerImage: t.height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end capture encoding: %w", err)
	}
	return r.submit(cmdBuf, "capture")
}

func isBGRA(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatBGRA8Unorm || format == gputypes.TextureFormatBGRA8UnormSrgb
}

// unpackRows strips row padding from a readback buffer and returns the
// pixels as RGBA, swapping red and blue for BGRA sources.
func unpackRows(data []byte, width, height, stride int, bgra bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := range height {
		dst := img.Pix[y*img.Stride : y*img.Stride+row]
		copy(dst, data[y*stride:y*stride+row])
		if bgra {
			for i := 0; i < row; i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
	return img
}
