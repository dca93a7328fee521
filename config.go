package rasterdemo

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogpu/rasterdemo/internal/capture"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// MaxDimension is the largest canvas edge accepted, the default 2D texture
// limit of WebGPU devices.
const MaxDimension = 8192

// Duration is a time.Duration that reads and writes as a string such as
// "16ms" in TOML and YAML files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds window, shader and capture settings.
type Config struct {
	// Window
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`

	// ShaderDir replaces the embedded WGSL sources when set.
	ShaderDir string `toml:"shader_dir" yaml:"shader_dir"`

	// Capture settings. A non-empty Capture path selects headless mode.
	Capture string   `toml:"capture" yaml:"capture"`
	Frames  int      `toml:"frames" yaml:"frames"`
	Step    Duration `toml:"step" yaml:"step"`
	Scale   float64  `toml:"scale" yaml:"scale"`

	// FrameTimeout bounds the wait for the previous frame's submissions.
	FrameTimeout Duration `toml:"frame_timeout" yaml:"frame_timeout"`

	Verbose bool `toml:"verbose" yaml:"verbose"`
}

// DefaultConfig returns an 800x600 windowed configuration.
func DefaultConfig() Config {
	return Config{
		Title:        "rasterdemo",
		Width:        800,
		Height:       600,
		Frames:       1,
		Step:         Duration{100 * time.Millisecond},
		Scale:        1,
		FrameTimeout: Duration{5 * time.Second},
	}
}

// Headless reports whether the configuration renders offscreen.
func (c Config) Headless() bool { return c.Capture != "" }

// LoadConfig reads a TOML or YAML file, chosen by extension, over the
// defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rasterdemo: read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Overrides holds CLI flag values that take priority over the config file.
// Zero values leave the file setting in place.
type Overrides struct {
	Width     int
	Height    int
	ShaderDir string
	Capture   string
	Frames    int
	Step      time.Duration
	Scale     float64
	Verbose   bool
}

// Apply copies the non-zero overrides into c.
func (c *Config) Apply(o Overrides) {
	if o.Width > 0 {
		c.Width = o.Width
	}
	if o.Height > 0 {
		c.Height = o.Height
	}
	if o.ShaderDir != "" {
		c.ShaderDir = o.ShaderDir
	}
	if o.Capture != "" {
		c.Capture = o.Capture
	}
	if o.Frames > 0 {
		c.Frames = o.Frames
	}
	if o.Step > 0 {
		c.Step = Duration{o.Step}
	}
	if o.Scale > 0 {
		c.Scale = o.Scale
	}
	if o.Verbose {
		c.Verbose = true
	}
}

// Validate checks sizes, counts and the capture path.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Width > MaxDimension || c.Height > MaxDimension {
		return fmt.Errorf("%w: size %dx%d exceeds %d", ErrInvalidConfig, c.Width, c.Height, MaxDimension)
	}
	if c.Frames < 1 {
		return fmt.Errorf("%w: frames %d must be at least 1", ErrInvalidConfig, c.Frames)
	}
	if c.Step.Duration < 0 {
		return fmt.Errorf("%w: negative step %v", ErrInvalidConfig, c.Step.Duration)
	}
	if c.FrameTimeout.Duration <= 0 {
		return fmt.Errorf("%w: frame timeout %v must be positive", ErrInvalidConfig, c.FrameTimeout.Duration)
	}
	if math.IsNaN(c.Scale) || c.Scale < 0 || c.Scale > 1 {
		return fmt.Errorf("%w: scale %v outside (0, 1]", ErrInvalidConfig, c.Scale)
	}
	if c.Capture != "" {
		if _, err := capture.FormatFor(c.Capture); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.ShaderDir != "" {
		fi, err := os.Stat(c.ShaderDir)
		if err != nil {
			return fmt.Errorf("%w: shader dir: %w", ErrInvalidConfig, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("%w: shader dir %s is not a directory", ErrInvalidConfig, c.ShaderDir)
		}
	}
	return nil
}
