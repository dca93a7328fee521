// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rasterdemo

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rasterdemo/internal/camera"
	"github.com/gogpu/rasterdemo/internal/shader"
	"github.com/gogpu/wgpu/hal"
)

// Frame is the work planned for one frame at a given elapsed time.
type Frame struct {
	Elapsed time.Duration

	// MVP is projection * view * model.
	MVP mgl32.Mat4

	// Uniform is MVP encoded for the camera uniform buffer.
	Uniform []byte

	// GroupsX and GroupsY are the rasterizer workgroup counts.
	GroupsX, GroupsY uint32

	// Vertices is the blit draw's vertex count.
	Vertices uint32
}

// DispatchSize returns the workgroup counts covering a canvas with 8x8
// workgroups: ceil(W/8) x ceil(H/8).
func DispatchSize(width, height int) (x, y uint32) {
	const wx, wy = shader.WorkgroupSizeX, shader.WorkgroupSizeY
	return (uint32(width) + wx - 1) / wx, (uint32(height) + wy - 1) / wy
}

// PlanFrame computes everything a frame needs from the elapsed time and
// canvas size. It touches no GPU state.
func PlanFrame(elapsed time.Duration, width, height int) Frame {
	return planFrame(camera.New(width, height), elapsed, width, height)
}

func planFrame(cam camera.Camera, elapsed time.Duration, width, height int) Frame {
	mvp := cam.MVP(elapsed)
	x, y := DispatchSize(width, height)
	return Frame{
		Elapsed:  elapsed,
		MVP:      mvp,
		Uniform:  camera.Bytes(mvp),
		GroupsX:  x,
		GroupsY:  y,
		Vertices: BlitVertexCount,
	}
}

// RenderFrame draws one frame into target.
//
// If the previous frame is still in flight it is waited for first, bounded
// by the frame timeout. The camera uniform is then rewritten and the compute
// and render passes are submitted in that order; queue order makes the
// rasterizer's writes visible to the blit. RenderFrame returns once both
// submissions are queued, leaving the frame in flight.
func (r *Renderer) RenderFrame(elapsed time.Duration, target hal.TextureView) error {
	if r.closed {
		return ErrClosed
	}
	if target == nil {
		return ErrNilTarget
	}
	if err := r.waitIdle(); err != nil {
		return err
	}

	frame := planFrame(r.cam, elapsed, r.width, r.height)
	if err := r.dev.Queue.WriteBuffer(r.res.camera, 0, frame.Uniform); err != nil {
		return fmt.Errorf("write camera uniform: %w", err)
	}

	if err := r.submitCompute(frame); err != nil {
		return err
	}
	if err := r.submitRender(frame, target); err != nil {
		return err
	}

	r.frames++
	if r.frames == 1 || r.frames%600 == 0 {
		Logger().Debug("frame submitted", "frame", r.frames, "elapsed", elapsed)
	}
	return nil
}

// submitCompute encodes and submits the rasterizer dispatch.
func (r *Renderer) submitCompute(frame Frame) error {
	encoder, err := r.dev.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "rasterizer_encoder",
	})
	if err != nil {
		return fmt.Errorf("create compute encoder: %w", err)
	}
	if err := encoder.BeginEncoding("rasterizer_frame"); err != nil {
		return fmt.Errorf("begin compute encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "rasterizer_pass"})
	pass.SetPipeline(r.pipes.raster)
	pass.SetBindGroup(0, r.pipes.rasterGroup, nil)
	pass.Dispatch(frame.GroupsX, frame.GroupsY, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end compute encoding: %w", err)
	}
	return r.submit(cmdBuf, "compute")
}

// submitRender encodes and submits the blit into target.
func (r *Renderer) submitRender(frame Frame, target hal.TextureView) error {
	encoder, err := r.dev.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "blit_encoder",
	})
	if err != nil {
		return fmt.Errorf("create render encoder: %w", err)
	}
	if err := encoder.BeginEncoding("blit_frame"); err != nil {
		return fmt.Errorf("begin render encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(r.pipes.blit)
	rp.SetBindGroup(0, r.pipes.blitGroup, nil)
	rp.Draw(frame.Vertices, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end render encoding: %w", err)
	}
	return r.submit(cmdBuf, "render")
}

// submit queues cmdBuf and records its submission index. The command
// buffer is freed once the queue reports that index completed.
func (r *Renderer) submit(cmdBuf hal.CommandBuffer, what string) error {
	idx, err := r.dev.Queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		r.dev.Device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit %s: %w", what, err)
	}
	r.submitted = idx
	r.inFlight = append(r.inFlight, cmdBuf)
	return nil
}

// InFlight reports whether submitted work has not been waited for yet.
func (r *Renderer) InFlight() bool { return len(r.inFlight) > 0 }

// pollInterval is the sleep between completion checks in waitIdle.
const pollInterval = 200 * time.Microsecond

// waitIdle waits until the queue has completed every submission so far and
// frees their command buffers. It returns ErrFrameTimeout if the last
// submission is still pending after the frame timeout.
func (r *Renderer) waitIdle() error {
	if len(r.inFlight) == 0 {
		return nil
	}
	deadline := time.Now().Add(r.timeout)
	for r.dev.Queue.PollCompleted() < r.submitted {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (%v)", ErrFrameTimeout, r.timeout)
		}
		time.Sleep(pollInterval)
	}
	for _, cb := range r.inFlight {
		r.dev.Device.FreeCommandBuffer(cb)
	}
	r.inFlight = r.inFlight[:0]
	return nil
}
