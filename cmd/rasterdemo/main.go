// Command rasterdemo opens a window showing a cube drawn by a compute-shader
// rasterizer, or renders frames offscreen to PNG/WebP files with -capture.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/rasterdemo"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run parses args, renders and returns the process exit code. Deferred
// cleanup runs before main exits.
func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("rasterdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "TOML or YAML config file")
		width      = fs.Int("width", 0, "canvas width (default 800)")
		height     = fs.Int("height", 0, "canvas height (default 600)")
		shaders    = fs.String("shaders", "", "directory with replacement WGSL shaders")
		output     = fs.String("capture", "", "render offscreen and write frames to this .png or .webp file")
		frames     = fs.Int("frames", 0, "number of frames to capture (default 1)")
		step       = fs.Duration("step", 0, "time between captured frames (default 100ms)")
		scale      = fs.Float64("scale", 0, "downscale factor for captured frames, in (0, 1]")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg := rasterdemo.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = rasterdemo.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "rasterdemo: load config: %v\n", err)
			return 1
		}
	}
	cfg.Apply(rasterdemo.Overrides{
		Width:     *width,
		Height:    *height,
		ShaderDir: *shaders,
		Capture:   *output,
		Frames:    *frames,
		Step:      *step,
		Scale:     *scale,
		Verbose:   *verbose,
	})

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	rasterdemo.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rasterdemo.Run(ctx, cfg); err != nil {
		fmt.Fprintf(stderr, "rasterdemo: %v\n", err)
		return 1
	}
	return 0
}
