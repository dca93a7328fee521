package rasterdemo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/rasterdemo/internal/capture"
	"github.com/gogpu/rasterdemo/internal/device"
	"github.com/gogpu/wgpu"
)

// errSurfaceView is returned when the window's surface view has already
// been released.
var errSurfaceView = errors.New("rasterdemo: surface view has no HAL texture view")

// Run validates cfg and renders in headless mode when cfg.Capture is set,
// otherwise in a window.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Headless() {
		return RunHeadless(ctx, cfg)
	}
	return RunWindow(cfg)
}

// shaderFS returns the override directory or nil for the embedded sources.
func shaderFS(cfg Config) fs.FS {
	if cfg.ShaderDir == "" {
		return nil
	}
	return os.DirFS(cfg.ShaderDir)
}

// RunWindow opens a window of the configured size and renders one frame per
// draw callback until the window closes. Setup happens on the first draw,
// using the window's device and surface format. The first setup or frame
// error stops the app and is returned.
func RunWindow(cfg Config) error {
	gc := gogpu.DefaultConfig().
		WithTitle(cfg.Title).
		WithSize(cfg.Width, cfg.Height)
	gc.Resizable = false
	app := gogpu.NewApp(gc)

	w := &windowRenderer{cfg: cfg, provider: app.GPUContextProvider}
	var runErr error
	app.OnDraw(func(dc *gogpu.Context) {
		if runErr != nil {
			return
		}
		if err := w.draw(dc, time.Now()); err != nil {
			runErr = err
			Logger().Error("stopping", "err", err)
			app.Quit()
		}
	})
	app.OnClose(w.close)

	if err := app.Run(); err != nil {
		return fmt.Errorf("rasterdemo: window: %w", err)
	}
	return runErr
}

// windowSurface is the part of a gogpu draw context the renderer uses.
type windowSurface interface {
	SurfaceView() *wgpu.TextureView
	SurfaceSize() (width, height uint32)
}

// windowRenderer sets up lazily on the first draw, when the host's device
// exists, and then renders every draw into the surface.
type windowRenderer struct {
	cfg      Config
	provider func() gpucontext.DeviceProvider

	r       *Renderer
	dev     *device.Device
	started time.Time
}

// draw renders one frame at now. Draws that arrive before the host has a
// device or a frame in progress are skipped.
func (w *windowRenderer) draw(s windowSurface, now time.Time) error {
	if w.r == nil {
		provider := w.provider()
		if provider == nil {
			return nil
		}
		// The surface is in physical pixels; cfg.Width and cfg.Height are
		// logical window points.
		sw, sh := s.SurfaceSize()
		if sw == 0 || sh == 0 {
			return nil
		}
		dev, err := device.FromProvider(provider)
		if err != nil {
			return err
		}
		r, err := Setup(dev, RendererOptions{
			Width:        int(sw),
			Height:       int(sh),
			Format:       provider.SurfaceFormat(),
			Shaders:      shaderFS(w.cfg),
			FrameTimeout: w.cfg.FrameTimeout.Duration,
		})
		if err != nil {
			return err
		}
		w.dev, w.r, w.started = dev, r, now
		Logger().Info("window renderer ready", "width", sw, "height", sh, "format", r.Format())
	}

	sv := s.SurfaceView()
	if sv == nil {
		return nil
	}
	view := sv.HalTextureView()
	if view == nil {
		return errSurfaceView
	}
	return w.r.RenderFrame(now.Sub(w.started), view)
}

func (w *windowRenderer) close() {
	w.r.Close()
	w.dev.Close()
}

// RunHeadless acquires its own device, renders cfg.Frames frames spaced by
// cfg.Step offscreen and writes them to cfg.Capture. With more than one frame
// the files are numbered. Cancelling ctx stops between frames.
func RunHeadless(ctx context.Context, cfg Config) error {
	backend, err := device.DefaultBackend()
	if err != nil {
		return err
	}
	return runHeadless(ctx, cfg, backend)
}

func runHeadless(ctx context.Context, cfg Config, backend device.Backend) error {
	dev, err := device.Acquire(backend, device.Options{Label: cfg.Title})
	if err != nil {
		return err
	}
	defer dev.Close()

	r, err := Setup(dev, RendererOptions{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Format:       gputypes.TextureFormatRGBA8Unorm,
		Shaders:      shaderFS(cfg),
		FrameTimeout: cfg.FrameTimeout.Duration,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	for i := range cfg.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed := time.Duration(i) * cfg.Step.Duration
		img, err := r.Capture(elapsed)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		path := cfg.Capture
		if cfg.Frames > 1 {
			path = capture.FrameName(cfg.Capture, i)
		}
		if err := capture.Write(path, img, capture.Options{Scale: cfg.Scale}); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		Logger().Info("frame captured", "path", path, "elapsed", elapsed)
	}
	return nil
}
