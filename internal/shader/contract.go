package shader

import (
	"fmt"
	"slices"

	"github.com/gogpu/naga/ir"
)

// Rasterizer workgroup size in invocations. The dispatch covers the canvas
// in tiles of WorkgroupSizeX x WorkgroupSizeY pixels.
const (
	WorkgroupSizeX = 8
	WorkgroupSizeY = 8
)

// ComputeWorkgroup returns the @workgroup_size the compute stage must declare.
func ComputeWorkgroup() [3]uint32 { return [3]uint32{WorkgroupSizeX, WorkgroupSizeY, 1} }

// contract describes what the pipelines expect from one stage.
type contract struct {
	stage     ir.ShaderStage
	bindings  []uint32
	workgroup [3]uint32
}

// contractFor returns the contract for a demo stage.
//
//	vertex:   no resources
//	fragment: 0 sampler, 1 texture_2d<f32>
//	compute:  0 storage texture, 1 depth storage buffer, 2 raster uniform, 3 camera uniform
func contractFor(s Stage) contract {
	switch s {
	case StageVertex:
		return contract{stage: ir.StageVertex}
	case StageFragment:
		return contract{stage: ir.StageFragment, bindings: []uint32{0, 1}}
	default:
		return contract{stage: ir.StageCompute, bindings: []uint32{0, 1, 2, 3}, workgroup: ComputeWorkgroup()}
	}
}

// check verifies module against c and returns a Module describing it,
// without SPIR-V.
func (c contract) check(name string, module *ir.Module) (*Module, error) {
	ep, n := entryPoint(module, c.stage)
	switch {
	case n == 0:
		return nil, fmt.Errorf("%w: %s: no %s entry point", ErrContract, name, stageName(c.stage))
	case n > 1:
		return nil, fmt.Errorf("%w: %s: %d %s entry points, want 1", ErrContract, name, n, stageName(c.stage))
	}

	if c.stage == ir.StageCompute && ep.Workgroup != c.workgroup {
		return nil, fmt.Errorf("%w: %s: workgroup size %v, want %v", ErrContract, name, ep.Workgroup, c.workgroup)
	}

	var bindings []uint32
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if gv.Binding.Group != 0 {
			return nil, fmt.Errorf("%w: %s: %s uses group %d, want 0", ErrContract, name, gv.Name, gv.Binding.Group)
		}
		bindings = append(bindings, gv.Binding.Binding)
	}
	slices.Sort(bindings)
	if !slices.Equal(bindings, c.bindings) {
		return nil, fmt.Errorf("%w: %s: bindings %v, want %v", ErrContract, name, bindings, c.bindings)
	}

	return &Module{
		Name:       name,
		Stage:      stageOf(c.stage),
		EntryPoint: ep.Name,
		Workgroup:  ep.Workgroup,
		Bindings:   bindings,
	}, nil
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	default:
		return StageCompute
	}
}

func stageName(s ir.ShaderStage) string {
	return stageOf(s).String()
}
