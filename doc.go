// Package rasterdemo renders a rotating cube with a compute-shader
// rasterizer and presents the result with a fullscreen blit.
//
// # Overview
//
// Setup is a strictly ordered sequence: acquire a device, negotiate the
// surface format, compile the shaders, allocate the screen-sized resources,
// then build the compute and render pipelines with their bind groups. After
// that a frame function runs once per display refresh:
//
//   - update the camera uniform with projection * view * model
//   - dispatch ceil(W/8) x ceil(H/8) rasterizer workgroups
//   - draw a fullscreen quad sampling the rasterizer's color output
//
// # Quick Start
//
//	cfg := rasterdemo.DefaultConfig()
//	if err := rasterdemo.Run(context.Background(), cfg); err != nil {
//		log.Fatal(err)
//	}
//
// With cfg.Capture set, Run renders offscreen on its own device and writes
// PNG or WebP frames instead of opening a window.
//
// # Shaders
//
// The WGSL sources are embedded. Config.ShaderDir points at a directory with
// replacement files of the same names.
package rasterdemo

// Version is the current version of the demo.
const Version = "0.1.0"
