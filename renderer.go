package rasterdemo

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rasterdemo/internal/camera"
	"github.com/gogpu/rasterdemo/internal/device"
	"github.com/gogpu/rasterdemo/internal/shader"
	"github.com/gogpu/wgpu/hal"
)

// DefaultFrameTimeout bounds the wait for the previous frame when
// RendererOptions.FrameTimeout is zero.
const DefaultFrameTimeout = 5 * time.Second

// RendererOptions configures Setup.
type RendererOptions struct {
	// Width and Height are the canvas size in pixels. They are fixed for the
	// renderer's lifetime.
	Width, Height int

	// Format is the presentation target's preferred color format.
	Format gputypes.TextureFormat

	// Shaders supplies the WGSL assets. Nil uses the embedded sources.
	Shaders fs.FS

	// FrameTimeout bounds the wait for the previous frame.
	FrameTimeout time.Duration
}

// Renderer owns every GPU object of the demo except the device.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	dev    *device.Device
	width  int
	height int
	format gputypes.TextureFormat
	cam    camera.Camera

	res   *resources
	pipes *pipelines

	// submitted is the queue's index for the last submission; work is
	// complete once PollCompleted reaches it.
	submitted uint64
	inFlight  []hal.CommandBuffer
	timeout   time.Duration

	offscreen *offscreenTarget

	frames uint64
	closed bool
}

// Setup runs the ordered startup sequence on dev: negotiate the target
// format, compile the shaders, allocate resources, and build both pipelines.
// Any failure releases what was created and is returned.
func Setup(dev *device.Device, opts RendererOptions) (_ *Renderer, err error) {
	if dev == nil || dev.Device == nil || dev.Queue == nil {
		return nil, fmt.Errorf("rasterdemo: setup: %w", device.ErrNoAdapter)
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > MaxDimension || opts.Height > MaxDimension {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, opts.Width, opts.Height)
	}

	format, err := device.NegotiateFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	fsys := opts.Shaders
	if fsys == nil {
		fsys = shader.Defaults()
	}
	set, err := shader.LoadSet(fsys)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		dev:     dev,
		width:   opts.Width,
		height:  opts.Height,
		format:  format,
		cam:     camera.New(opts.Width, opts.Height),
		timeout: opts.FrameTimeout,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultFrameTimeout
	}
	defer func() {
		if err != nil {
			r.release()
		}
	}()

	r.res, err = createResources(dev.Device, dev.Queue, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	r.pipes, err = createPipelines(dev.Device, set, r.res, format)
	if err != nil {
		return nil, err
	}
	Logger().Info("renderer ready",
		"gpu", dev.Info.String(),
		"width", opts.Width, "height", opts.Height,
		"format", format)
	return r, nil
}

// Size returns the canvas size.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// Format returns the negotiated presentation format.
func (r *Renderer) Format() gputypes.TextureFormat { return r.format }

// Frames returns the number of frames submitted.
func (r *Renderer) Frames() uint64 { return r.frames }

// Close waits for in-flight work and destroys all renderer objects. The
// device itself is left to its owner. Close is safe to call more than once.
func (r *Renderer) Close() {
	if r == nil || r.closed {
		return
	}
	if err := r.waitIdle(); err != nil {
		Logger().Warn("close: previous frame did not complete", "err", err)
	}
	r.release()
	r.closed = true
	Logger().Info("renderer closed", "frames", r.frames)
}

func (r *Renderer) release() {
	d := r.dev.Device
	if d == nil {
		return
	}
	for _, cb := range r.inFlight {
		d.FreeCommandBuffer(cb)
	}
	r.inFlight = nil
	if r.offscreen != nil {
		r.offscreen.destroy(d)
		r.offscreen = nil
	}
	if r.pipes != nil {
		r.pipes.destroy(d)
		r.pipes = nil
	}
	if r.res != nil {
		r.res.destroy(d)
		r.res = nil
	}
}
