package rasterdemo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("default size = %dx%d, want 800x600", cfg.Width, cfg.Height)
	}
	if cfg.Headless() {
		t.Error("default config should be windowed")
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "demo.toml", `
title = "cube"
width = 320
height = 240
capture = "out/cube.webp"
frames = 4
step = "250ms"
scale = 0.5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Title != "cube" || cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("window = %q %dx%d", cfg.Title, cfg.Width, cfg.Height)
	}
	if cfg.Capture != "out/cube.webp" || cfg.Frames != 4 || cfg.Scale != 0.5 {
		t.Errorf("capture = %q frames=%d scale=%v", cfg.Capture, cfg.Frames, cfg.Scale)
	}
	if cfg.Step.Duration != 250*time.Millisecond {
		t.Errorf("step = %v, want 250ms", cfg.Step.Duration)
	}
	// Unset keys keep their defaults.
	if cfg.FrameTimeout.Duration != 5*time.Second {
		t.Errorf("frame timeout = %v, want default 5s", cfg.FrameTimeout.Duration)
	}
	if !cfg.Headless() {
		t.Error("config with capture path should be headless")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "demo.yaml", `
width: 1024
height: 768
frame_timeout: 2s
verbose: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Width != 1024 || cfg.Height != 768 {
		t.Errorf("size = %dx%d, want 1024x768", cfg.Width, cfg.Height)
	}
	if cfg.FrameTimeout.Duration != 2*time.Second {
		t.Errorf("frame timeout = %v, want 2s", cfg.FrameTimeout.Duration)
	}
	if !cfg.Verbose {
		t.Error("verbose not set")
	}
	if cfg.Title != "rasterdemo" {
		t.Errorf("title = %q, want default", cfg.Title)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "demo.json", `{"width": 10}`},
		{"bad toml", "demo.toml", `width = `},
		{"bad yaml", "demo.yml", "width: [1, 2"},
		{"bad duration", "demo.toml", `step = "soon"`},
		{"invalid size", "demo.toml", `width = 0`},
		{"too large", "demo.yaml", "height: 9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, "plain.txt", "x")

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative width", func(c *Config) { c.Width = -1 }, false},
		{"zero height", func(c *Config) { c.Height = 0 }, false},
		{"max size", func(c *Config) { c.Width, c.Height = MaxDimension, MaxDimension }, true},
		{"zero frames", func(c *Config) { c.Frames = 0 }, false},
		{"negative step", func(c *Config) { c.Step.Duration = -time.Second }, false},
		{"zero timeout", func(c *Config) { c.FrameTimeout.Duration = 0 }, false},
		{"scale above one", func(c *Config) { c.Scale = 2 }, false},
		{"png capture", func(c *Config) { c.Capture = "a.png" }, true},
		{"jpeg capture", func(c *Config) { c.Capture = "a.jpg" }, false},
		{"shader dir", func(c *Config) { c.ShaderDir = dir }, true},
		{"shader dir is file", func(c *Config) { c.ShaderDir = file }, false},
		{"missing shader dir", func(c *Config) { c.ShaderDir = filepath.Join(dir, "nope") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture = "file.png"
	cfg.Apply(Overrides{Width: 640, Frames: 3, Step: time.Second, Verbose: true})

	if cfg.Width != 640 || cfg.Height != 600 {
		t.Errorf("size = %dx%d, want 640x600", cfg.Width, cfg.Height)
	}
	if cfg.Frames != 3 || cfg.Step.Duration != time.Second || !cfg.Verbose {
		t.Errorf("frames=%d step=%v verbose=%v", cfg.Frames, cfg.Step.Duration, cfg.Verbose)
	}
	if cfg.Capture != "file.png" {
		t.Errorf("capture = %q, empty override should keep file value", cfg.Capture)
	}
}
