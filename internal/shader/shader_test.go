package shader

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
)

func loadDefault(t *testing.T, name string, stage Stage) Source {
	t.Helper()
	src, err := Load(Defaults(), name, stage)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", name, err)
	}
	return src
}

func TestDefaultsContainAllAssets(t *testing.T) {
	for _, name := range []string{VertexAsset, FragmentAsset, ComputeAsset} {
		if _, err := fs.Stat(Defaults(), name); err != nil {
			t.Errorf("embedded asset %s missing: %v", name, err)
		}
	}
}

func TestLoadSetDefaults(t *testing.T) {
	set, err := LoadSet(Defaults())
	if err != nil {
		t.Fatalf("LoadSet(Defaults()) error = %v", err)
	}

	tests := []struct {
		name     string
		m        *Module
		stage    Stage
		bindings []uint32
	}{
		{"vertex", set.Vertex, StageVertex, nil},
		{"fragment", set.Fragment, StageFragment, []uint32{0, 1}},
		{"compute", set.Compute, StageCompute, []uint32{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.m == nil {
				t.Fatal("module is nil")
			}
			if tt.m.Stage != tt.stage {
				t.Errorf("Stage = %v, want %v", tt.m.Stage, tt.stage)
			}
			if tt.m.EntryPoint != "main" {
				t.Errorf("EntryPoint = %q, want %q", tt.m.EntryPoint, "main")
			}
			if !slices.Equal(tt.m.Bindings, tt.bindings) {
				t.Errorf("Bindings = %v, want %v", tt.m.Bindings, tt.bindings)
			}
			if len(tt.m.SPIRV) < 5 {
				t.Fatalf("SPIRV has %d words, want a header at least", len(tt.m.SPIRV))
			}
			if tt.m.SPIRV[0] != 0x07230203 {
				t.Errorf("SPIR-V magic = %#08x, want 0x07230203", tt.m.SPIRV[0])
			}
		})
	}

	if set.Compute.Workgroup != ComputeWorkgroup() {
		t.Errorf("compute Workgroup = %v, want %v", set.Compute.Workgroup, ComputeWorkgroup())
	}
}

func TestLoadMissingAsset(t *testing.T) {
	_, err := Load(fstest.MapFS{}, ComputeAsset, StageCompute)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Load() error = %v, want ErrAssetNotFound", err)
	}
}

func TestLoadEmptyAsset(t *testing.T) {
	fsys := fstest.MapFS{VertexAsset: &fstest.MapFile{Data: nil}}
	_, err := Load(fsys, VertexAsset, StageVertex)
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("Load() error = %v, want ErrEmptySource", err)
	}
}

func TestCompileEmpty(t *testing.T) {
	_, err := Compile(Source{Name: "x.wgsl", Stage: StageVertex})
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("Compile() error = %v, want ErrEmptySource", err)
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(Source{Name: "bad.wgsl", Stage: StageCompute, Code: "@compute fn main( {"})
	if !errors.Is(err, ErrCompile) {
		t.Errorf("Compile() error = %v, want ErrCompile", err)
	}
}

func TestCompileRejectsWorkgroupSize(t *testing.T) {
	src := loadDefault(t, ComputeAsset, StageCompute)
	src.Code = strings.Replace(src.Code, "@workgroup_size(8, 8, 1)", "@workgroup_size(16, 16, 1)", 1)
	if !strings.Contains(src.Code, "@workgroup_size(16, 16, 1)") {
		t.Fatal("workgroup attribute not found in embedded compute shader")
	}

	_, err := Compile(src)
	if !errors.Is(err, ErrContract) {
		t.Errorf("Compile() error = %v, want ErrContract", err)
	}
}

func TestCompileRejectsWrongStage(t *testing.T) {
	src := loadDefault(t, VertexAsset, StageVertex)
	src.Stage = StageCompute

	_, err := Compile(src)
	if !errors.Is(err, ErrContract) {
		t.Errorf("Compile() error = %v, want ErrContract", err)
	}
}

const threeBindings = `
@group(0) @binding(0) var<storage, read_write> a: array<f32>;
@group(0) @binding(1) var<storage, read_write> b: array<f32>;
@group(0) @binding(2) var<uniform> c: vec4<f32>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    a[id.x] = b[id.x] + c.x;
}
`

func TestCompileRejectsMissingBinding(t *testing.T) {
	_, err := Compile(Source{Name: "short.wgsl", Stage: StageCompute, Code: threeBindings})
	if !errors.Is(err, ErrContract) {
		t.Errorf("Compile() error = %v, want ErrContract", err)
	}
}

const groupOneFragment = `
@group(1) @binding(0) var s: sampler;
@group(1) @binding(1) var tex: texture_2d<f32>;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, s, uv);
}
`

func TestCompileRejectsOtherGroup(t *testing.T) {
	_, err := Compile(Source{Name: "group1.wgsl", Stage: StageFragment, Code: groupOneFragment})
	if !errors.Is(err, ErrContract) {
		t.Errorf("Compile() error = %v, want ErrContract", err)
	}
}

func TestLoadSetOverride(t *testing.T) {
	defaults := Defaults()
	fsys := fstest.MapFS{}
	for _, name := range []string{VertexAsset, FragmentAsset, ComputeAsset} {
		data, err := fs.ReadFile(defaults, name)
		if err != nil {
			t.Fatal(err)
		}
		fsys[name] = &fstest.MapFile{Data: data}
	}

	if _, err := LoadSet(fsys); err != nil {
		t.Fatalf("LoadSet(override) error = %v", err)
	}

	delete(fsys, FragmentAsset)
	if _, err := LoadSet(fsys); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("LoadSet() without fragment asset error = %v, want ErrAssetNotFound", err)
	}
}

func TestStageString(t *testing.T) {
	tests := map[Stage]string{
		StageVertex:   "vertex",
		StageFragment: "fragment",
		StageCompute:  "compute",
		Stage(9):      "Stage(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", uint8(s), got, want)
		}
	}
}

func TestSPIRVWords(t *testing.T) {
	got := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	want := []uint32{0x07230203, 1}
	if !slices.Equal(got, want) {
		t.Errorf("spirvWords() = %#v, want %#v", got, want)
	}
}

func TestComputeWorkgroupIsImmutable(t *testing.T) {
	wg := ComputeWorkgroup()
	wg[0], wg[1] = 16, 16
	if got := ComputeWorkgroup(); got != [3]uint32{8, 8, 1} {
		t.Errorf("ComputeWorkgroup() = %v after modifying a returned copy", got)
	}
	if _, err := Compile(loadDefault(t, ComputeAsset, StageCompute)); err != nil {
		t.Errorf("default compute shader rejected: %v", err)
	}
}
