package camera

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) <= eps*math.Max(1, math.Abs(float64(b)))
}

func assertMat(t *testing.T, name string, got, want mgl32.Mat4) {
	t.Helper()
	for i := range got {
		if !approx(got[i], want[i]) {
			t.Fatalf("%s[%d] = %v, want %v\n got: %v\nwant: %v", name, i, got[i], want[i], got, want)
		}
	}
}

// perspective builds the standard OpenGL-style perspective matrix in
// column-major order from first principles.
func perspective(fovy, aspect, near, far float64) mgl32.Mat4 {
	f := 1 / math.Tan(fovy/2)
	nf := 1 / (near - far)
	return mgl32.Mat4{
		float32(f / aspect), 0, 0, 0,
		0, float32(f), 0, 0,
		0, 0, float32((far + near) * nf), -1,
		0, 0, float32(2 * far * near * nf), 0,
	}
}

func TestAspect(t *testing.T) {
	tests := []struct {
		w, h int
		want float32
	}{
		{800, 600, -800.0 / 600.0},
		{600, 800, -600.0 / 800.0},
		{1, 1, -1},
	}
	for _, tt := range tests {
		if got := Aspect(tt.w, tt.h); !approx(got, tt.want) {
			t.Errorf("Aspect(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestProjection(t *testing.T) {
	sizes := [][2]int{{800, 600}, {1920, 1080}, {300, 900}}
	for _, s := range sizes {
		aspect := -math.Abs(float64(s[0]) / float64(s[1]))
		want := perspective(2*math.Pi/5, aspect, 0.1, 768.0)
		assertMat(t, "projection", Projection(s[0], s[1]), want)
	}
}

func TestProjectionNegativeAspectMirrorsX(t *testing.T) {
	p := Projection(800, 600)
	if p.At(0, 0) >= 0 {
		t.Errorf("projection[0][0] = %v, want negative for mirrored aspect", p.At(0, 0))
	}
	if p.At(1, 1) <= 0 {
		t.Errorf("projection[1][1] = %v, want positive", p.At(1, 1))
	}
}

func TestView(t *testing.T) {
	v := View()
	want := mgl32.Ident4()
	want[12], want[13], want[14] = 0, 0, -2
	assertMat(t, "view", v, want)

	// Upper-left 3x3 stays identity: pure translation.
	if v.Mat3() != mgl32.Ident3() {
		t.Errorf("view rotation part = %v, want identity", v.Mat3())
	}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float32
	}{
		{0, 0},
		{time.Millisecond, 0.001},
		{time.Second, 1},
		{2500 * time.Millisecond, 2.5},
	}
	for _, tt := range tests {
		if got := Angle(tt.elapsed); !approx(got, tt.want) {
			t.Errorf("Angle(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestModelIsYRotation(t *testing.T) {
	for _, ms := range []int{0, 16, 1000, 3141, 12345} {
		elapsed := time.Duration(ms) * time.Millisecond
		m := Model(elapsed)

		a := float64(ms) * 0.001
		c, s := float32(math.Cos(a)), float32(math.Sin(a))
		want := mgl32.Mat4{
			c, 0, -s, 0,
			0, 1, 0, 0,
			s, 0, c, 0,
			0, 0, 0, 1,
		}
		assertMat(t, "model", m, want)
	}
}

func TestModelOrthogonal(t *testing.T) {
	for _, ms := range []int{0, 250, 777, 5000} {
		m := Model(time.Duration(ms) * time.Millisecond)
		if d := m.Det(); !approx(d, 1) {
			t.Errorf("det(model at %dms) = %v, want 1", ms, d)
		}
		assertMat(t, "model*model^T", m.Mul4(m.Transpose()), mgl32.Ident4())
	}
}

func TestModelScaleIsNoop(t *testing.T) {
	elapsed := 420 * time.Millisecond
	rotated := mgl32.Ident4().Mul4(mgl32.HomogRotate3DY(Angle(elapsed)))
	assertMat(t, "model", Model(elapsed), rotated)
}

func TestMVPOrder(t *testing.T) {
	cam := New(800, 600)
	elapsed := 1234 * time.Millisecond

	got := cam.MVP(elapsed)
	want := cam.Projection.Mul4(cam.View).Mul4(Model(elapsed))
	assertMat(t, "mvp", got, want)

	// The reversed composition must differ; otherwise the test above
	// would not detect an ordering bug.
	wrong := cam.View.Mul4(cam.Projection).Mul4(Model(elapsed))
	same := true
	for i := range got {
		if !approx(got[i], wrong[i]) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("view*projection*model equals projection*view*model; order is not observable")
	}
}

func TestEncode(t *testing.T) {
	m := mgl32.Mat4{}
	for i := range m {
		m[i] = float32(i) + 0.5
	}
	b := Bytes(m)
	if len(b) != UniformSize {
		t.Fatalf("len = %d, want %d", len(b), UniformSize)
	}
	for i := range m {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if got != m[i] {
			t.Errorf("element %d = %v, want %v", i, got, m[i])
		}
	}
}
