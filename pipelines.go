// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterdemo

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rasterdemo/internal/camera"
	"github.com/gogpu/rasterdemo/internal/shader"
	"github.com/gogpu/wgpu/hal"
)

// BlitVertexCount is the number of vertices in the fullscreen blit draw:
// two triangles, no vertex buffer.
const BlitVertexCount = 6

// pipelines holds the rasterizer compute pipeline, the blit render pipeline
// and their bind groups. Everything here is immutable after creation.
type pipelines struct {
	vertexShader   hal.ShaderModule
	fragmentShader hal.ShaderModule
	computeShader  hal.ShaderModule

	rasterLayout     hal.BindGroupLayout
	rasterPipeLayout hal.PipelineLayout
	raster           hal.ComputePipeline
	rasterGroup      hal.BindGroup

	blitLayout     hal.BindGroupLayout
	blitPipeLayout hal.PipelineLayout
	blit           hal.RenderPipeline
	blitGroup      hal.BindGroup
}

// createPipelines builds both pipelines against res. format is the color
// format of the presentation target the blit draws into.
func createPipelines(device hal.Device, set *shader.Set, res *resources, format gputypes.TextureFormat) (_ *pipelines, err error) {
	p := &pipelines{}
	defer func() {
		if err != nil {
			p.destroy(device)
		}
	}()

	if p.vertexShader, err = set.Vertex.Create(device, "blit_vertex"); err != nil {
		return nil, err
	}
	if p.fragmentShader, err = set.Fragment.Create(device, "blit_fragment"); err != nil {
		return nil, err
	}
	if p.computeShader, err = set.Compute.Create(device, "rasterizer"); err != nil {
		return nil, err
	}

	if err = p.createRaster(device, set.Compute, res); err != nil {
		return nil, err
	}
	if err = p.createBlit(device, set, res, format); err != nil {
		return nil, err
	}

	Logger().Debug("pipelines created", "surface_format", format)
	return p, nil
}

// createRaster builds the compute pipeline.
//
// Bind group layout (compute visibility):
//
//	0: write-only storage texture, RGBA8Unorm 2D (color output)
//	1: storage buffer (depth)
//	2: uniform buffer (rasterization parameters)
//	3: uniform buffer (camera transform)
func (p *pipelines) createRaster(device hal.Device, module *shader.Module, res *resources) error {
	var err error
	p.rasterLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "rasterizer_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				StorageTexture: &gputypes.StorageTextureBindingLayout{
					Access:        gputypes.StorageTextureAccessWriteOnly,
					Format:        ColorFormat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create rasterizer bind group layout: %w", err)
	}

	p.rasterPipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rasterizer_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.rasterLayout},
	})
	if err != nil {
		return fmt.Errorf("create rasterizer pipeline layout: %w", err)
	}

	p.raster, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "rasterizer_pipeline", Layout: p.rasterPipeLayout,
		Compute: hal.ComputeState{Module: p.computeShader, EntryPoint: module.EntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create rasterizer pipeline: %w", err)
	}

	p.rasterGroup, err = device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "rasterizer_bind_group",
		Layout: p.rasterLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: res.colorView.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: res.depth.NativeHandle(), Offset: 0, Size: DepthBufferSize(int(res.width), int(res.height))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: res.raster.NativeHandle(), Offset: 0, Size: RasterUniformSize}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: res.camera.NativeHandle(), Offset: 0, Size: camera.UniformSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create rasterizer bind group: %w", err)
	}
	return nil
}

// createBlit builds the fullscreen render pipeline.
//
// Bind group layout (fragment visibility):
//
//	0: filtering sampler
//	1: float 2D texture (rasterizer color output)
func (p *pipelines) createBlit(device hal.Device, set *shader.Set, res *resources, format gputypes.TextureFormat) error {
	var err error
	p.blitLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create blit bind group layout: %w", err)
	}

	p.blitPipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.blitLayout},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline layout: %w", err)
	}

	p.blit, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "blit_pipeline",
		Layout: p.blitPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertexShader,
			EntryPoint: set.Vertex.EntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragmentShader,
			EntryPoint: set.Fragment.EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline: %w", err)
	}

	p.blitGroup, err = device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "blit_bind_group",
		Layout: p.blitLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.SamplerBinding{Sampler: res.sampler.NativeHandle()}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: res.colorView.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create blit bind group: %w", err)
	}
	return nil
}

func (p *pipelines) destroy(device hal.Device) {
	if p.blitGroup != nil {
		device.DestroyBindGroup(p.blitGroup)
		p.blitGroup = nil
	}
	if p.blit != nil {
		device.DestroyRenderPipeline(p.blit)
		p.blit = nil
	}
	if p.blitPipeLayout != nil {
		device.DestroyPipelineLayout(p.blitPipeLayout)
		p.blitPipeLayout = nil
	}
	if p.blitLayout != nil {
		device.DestroyBindGroupLayout(p.blitLayout)
		p.blitLayout = nil
	}
	if p.rasterGroup != nil {
		device.DestroyBindGroup(p.rasterGroup)
		p.rasterGroup = nil
	}
	if p.raster != nil {
		device.DestroyComputePipeline(p.raster)
		p.raster = nil
	}
	if p.rasterPipeLayout != nil {
		device.DestroyPipelineLayout(p.rasterPipeLayout)
		p.rasterPipeLayout = nil
	}
	if p.rasterLayout != nil {
		device.DestroyBindGroupLayout(p.rasterLayout)
		p.rasterLayout = nil
	}
	for _, sm := range []*hal.ShaderModule{&p.computeShader, &p.fragmentShader, &p.vertexShader} {
		if *sm != nil {
			device.DestroyShaderModule(*sm)
			*sm = nil
		}
	}
}
