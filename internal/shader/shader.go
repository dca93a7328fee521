// Package shader loads the demo's WGSL assets and translates them to SPIR-V
// with naga, checking each stage against the binding layout the pipelines
// are built for.
//
// The three assets are:
//
//	blit.vert.wgsl        vertex stage of the fullscreen blit
//	blit.frag.wgsl        fragment stage of the fullscreen blit
//	rasterizer.comp.wgsl  compute rasterizer (8x8 workgroups)
//
// Default copies are embedded in the binary. A directory containing files
// with the same names replaces them at startup.
package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
)

//go:embed shaders/*.wgsl
var embedded embed.FS

// Asset file names.
const (
	VertexAsset   = "blit.vert.wgsl"
	FragmentAsset = "blit.frag.wgsl"
	ComputeAsset  = "rasterizer.comp.wgsl"
)

// Errors returned by the shader package.
var (
	// ErrAssetNotFound is returned when a shader asset cannot be read.
	ErrAssetNotFound = errors.New("shader: asset not found")

	// ErrEmptySource is returned when a shader asset contains no code.
	ErrEmptySource = errors.New("shader: empty source")

	// ErrCompile is returned when WGSL parsing, lowering, validation, or
	// SPIR-V generation fails.
	ErrCompile = errors.New("shader: compilation failed")

	// ErrContract is returned when a compiled shader does not match the
	// binding layout expected for its stage.
	ErrContract = errors.New("shader: binding contract violated")
)

// Stage identifies the pipeline stage a shader asset is written for.
type Stage uint8

const (
	// StageVertex is the blit vertex stage.
	StageVertex Stage = iota
	// StageFragment is the blit fragment stage.
	StageFragment
	// StageCompute is the rasterizer compute stage.
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// Source is the text of one shader asset.
type Source struct {
	Name  string
	Stage Stage
	Code  string
}

// Defaults returns the embedded shader assets as a filesystem rooted at the
// asset directory.
func Defaults() fs.FS {
	sub, err := fs.Sub(embedded, "shaders")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}

// Load reads the named asset from fsys.
func Load(fsys fs.FS, name string, stage Stage) (Source, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %s: %w", ErrAssetNotFound, name, err)
	}
	if len(data) == 0 {
		return Source{}, fmt.Errorf("%w: %s", ErrEmptySource, name)
	}
	return Source{Name: name, Stage: stage, Code: string(data)}, nil
}

// Set holds the three compiled modules the demo needs.
type Set struct {
	Vertex   *Module
	Fragment *Module
	Compute  *Module
}

// LoadSet loads and compiles all three assets from fsys. Compilation stops at
// the first failure.
func LoadSet(fsys fs.FS) (*Set, error) {
	assets := []struct {
		name  string
		stage Stage
		dst   **Module
	}{
		{VertexAsset, StageVertex, nil},
		{FragmentAsset, StageFragment, nil},
		{ComputeAsset, StageCompute, nil},
	}
	set := &Set{}
	assets[0].dst = &set.Vertex
	assets[1].dst = &set.Fragment
	assets[2].dst = &set.Compute

	for _, a := range assets {
		src, err := Load(fsys, a.name, a.stage)
		if err != nil {
			return nil, err
		}
		m, err := Compile(src)
		if err != nil {
			return nil, err
		}
		*a.dst = m
	}
	return set, nil
}
