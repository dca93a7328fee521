package shader

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/wgsl"
	"github.com/gogpu/wgpu/hal"
)

// Module is a compiled shader stage ready for pipeline creation.
type Module struct {
	// Name is the asset the module was compiled from.
	Name string

	// Stage is the pipeline stage the module serves.
	Stage Stage

	// EntryPoint is the name of the stage's entry function.
	EntryPoint string

	// Workgroup is the compute workgroup size; zero for other stages.
	Workgroup [3]uint32

	// Bindings lists the group 0 binding numbers the module declares, ascending.
	Bindings []uint32

	// SPIRV holds the translated little-endian SPIR-V words.
	SPIRV []uint32
}

// Compile translates src to SPIR-V and checks it against the binding
// contract for src.Stage.
//
// The pipeline is:
//  1. Parse WGSL to AST
//  2. Lower AST to IR (warnings are logged at debug level)
//  3. Validate IR
//  4. Check the stage contract (entry point, workgroup size, bindings)
//  5. Generate SPIR-V
func Compile(src Source) (*Module, error) {
	if src.Code == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, src.Name)
	}

	ast, err := naga.Parse(src.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, src.Name, err)
	}

	lowered, err := wgsl.LowerWithWarnings(ast, src.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: lowering: %w", ErrCompile, src.Name, err)
	}
	for _, w := range lowered.Warnings {
		slogger().Debug("shader warning", "asset", src.Name, "msg", w.Message)
	}
	module := lowered.Module

	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: validation: %w", ErrCompile, src.Name, err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s: validation: %w", ErrCompile, src.Name, verrs[0])
	}

	m, err := contractFor(src.Stage).check(src.Name, module)
	if err != nil {
		return nil, err
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, src.Name, err)
	}
	m.SPIRV = spirvWords(code)

	slogger().Debug("shader compiled",
		"asset", src.Name, "stage", src.Stage.String(),
		"entry", m.EntryPoint, "words", len(m.SPIRV))
	return m, nil
}

// Create builds a hal shader module from the compiled SPIR-V.
func (m *Module) Create(device hal.Device, label string) (hal.ShaderModule, error) {
	sm, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: m.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", m.Name, err)
	}
	return sm, nil
}

// spirvWords converts SPIR-V bytes to 32-bit little-endian words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

// entryPoint returns the single entry point of the given IR stage.
func entryPoint(module *ir.Module, stage ir.ShaderStage) (ir.EntryPoint, int) {
	var found ir.EntryPoint
	n := 0
	for _, ep := range module.EntryPoints {
		if ep.Stage == stage {
			if n == 0 {
				found = ep
			}
			n++
		}
	}
	return found, n
}
