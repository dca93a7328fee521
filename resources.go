package rasterdemo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rasterdemo/internal/camera"
	"github.com/gogpu/wgpu/hal"
)

// Buffer and texture sizes derived from the canvas.
const (
	// ColorFormat is the rasterizer's color output format.
	ColorFormat = gputypes.TextureFormatRGBA8Unorm

	// RasterUniformSize is the byte size of the rasterization uniform:
	// viewport vec4 followed by depth range vec4.
	RasterUniformSize = 8 * 4

	// depthElementSize is the byte size of one depth buffer entry.
	depthElementSize = 4
)

// RasterParams encodes the rasterization uniform for a canvas:
// viewport (0, 0, W, H) and depth range (0, 1, 0, 0).
func RasterParams(width, height int) []byte {
	vals := [8]float32{0, 0, float32(width), float32(height), 0, 1, 0, 0}
	b := make([]byte, RasterUniformSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DepthBufferSize returns the byte size of the depth buffer for a canvas.
func DepthBufferSize(width, height int) uint64 {
	return uint64(width) * uint64(height) * depthElementSize
}

// resources holds the screen-sized GPU objects allocated once at startup.
type resources struct {
	width, height uint32

	colorTex  hal.Texture
	colorView hal.TextureView
	sampler   hal.Sampler

	depth  hal.Buffer
	camera hal.Buffer
	raster hal.Buffer
}

// createResources allocates the color texture, depth buffer and both
// uniforms, and uploads the rasterization uniform. On failure everything
// created so far is released.
func createResources(device hal.Device, queue hal.Queue, width, height int) (_ *resources, err error) {
	r := &resources{width: uint32(width), height: uint32(height)}
	defer func() {
		if err != nil {
			r.destroy(device)
		}
	}()

	r.colorTex, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         "raster_color",
		Size:          hal.Extent3D{Width: r.width, Height: r.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage:         gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("create color texture: %w", err)
	}

	r.colorView, err = device.CreateTextureView(r.colorTex, &hal.TextureViewDescriptor{
		Label:         "raster_color_view",
		Format:        ColorFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create color view: %w", err)
	}

	r.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "screen_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	r.depth, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raster_depth",
		Size:  DepthBufferSize(width, height),
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create depth buffer: %w", err)
	}

	// Queue.WriteBuffer copies through mapped memory, so both uniforms are
	// host-visible.
	r.camera, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camera_uniform",
		Size:  camera.UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create camera uniform: %w", err)
	}

	r.raster, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raster_uniform",
		Size:  RasterUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create raster uniform: %w", err)
	}
	if err = queue.WriteBuffer(r.raster, 0, RasterParams(width, height)); err != nil {
		return nil, fmt.Errorf("write raster uniform: %w", err)
	}

	Logger().Debug("resources created",
		"width", width, "height", height,
		"depth_bytes", DepthBufferSize(width, height))
	return r, nil
}

func (r *resources) destroy(device hal.Device) {
	if r.raster != nil {
		device.DestroyBuffer(r.raster)
		r.raster = nil
	}
	if r.camera != nil {
		device.DestroyBuffer(r.camera)
		r.camera = nil
	}
	if r.depth != nil {
		device.DestroyBuffer(r.depth)
		r.depth = nil
	}
	if r.sampler != nil {
		device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.colorView != nil {
		device.DestroyTextureView(r.colorView)
		r.colorView = nil
	}
	if r.colorTex != nil {
		device.DestroyTexture(r.colorTex)
		r.colorTex = nil
	}
}
