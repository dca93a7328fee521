// Package camera computes the model-view-projection transform written to the
// rasterizer's camera uniform every frame.
//
// Matrices are column-major [mgl32.Mat4] values, the same memory layout the
// WGSL shaders expect for mat4x4<f32>.
package camera

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection parameters.
const (
	// FieldOfView is the vertical field of view in radians (2π/5).
	FieldOfView = 2 * math.Pi / 5

	// Near is the near clipping plane distance.
	Near = 0.1

	// Far is the far clipping plane distance.
	Far = 768.0

	// RotationRate is the model rotation about Y in radians per millisecond.
	RotationRate = 0.001
)

// UniformSize is the byte size of the encoded camera uniform (one mat4x4<f32>).
const UniformSize = 16 * 4

// ViewOffset is the translation applied to the identity view matrix.
var ViewOffset = mgl32.Vec3{0, 0, -2}

// ModelScale is the scale applied after the model rotation. It is (1,1,1),
// which leaves the rotated model matrix unchanged.
var ModelScale = mgl32.Vec3{1, 1, 1}

// Camera holds the matrices that stay fixed for the lifetime of the renderer.
type Camera struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
}

// New returns a camera for a canvas of the given pixel size.
func New(width, height int) Camera {
	return Camera{
		Projection: Projection(width, height),
		View:       View(),
	}
}

// Aspect returns the aspect ratio used by the projection: -|width/height|.
// The negative sign mirrors the image horizontally.
func Aspect(width, height int) float32 {
	return -float32(math.Abs(float64(width) / float64(height)))
}

// Projection returns the perspective projection for a canvas of the given size.
func Projection(width, height int) mgl32.Mat4 {
	return mgl32.Perspective(FieldOfView, Aspect(width, height), Near, Far)
}

// View returns the view matrix: identity translated by ViewOffset.
func View() mgl32.Mat4 {
	return mgl32.Ident4().Mul4(mgl32.Translate3D(ViewOffset.X(), ViewOffset.Y(), ViewOffset.Z()))
}

// Angle returns the model rotation about Y after elapsed time.
func Angle(elapsed time.Duration) float32 {
	ms := float64(elapsed) / float64(time.Millisecond)
	return float32(ms * RotationRate)
}

// Model returns the model matrix after elapsed time: identity, rotated about
// Y by Angle(elapsed), then scaled by ModelScale.
func Model(elapsed time.Duration) mgl32.Mat4 {
	m := mgl32.Ident4()
	m = m.Mul4(mgl32.HomogRotate3DY(Angle(elapsed)))
	return m.Mul4(mgl32.Scale3D(ModelScale.X(), ModelScale.Y(), ModelScale.Z()))
}

// MVP returns projection * view * model for the given elapsed time.
func (c Camera) MVP(elapsed time.Duration) mgl32.Mat4 {
	return c.Projection.Mul4(c.View.Mul4(Model(elapsed)))
}

// Encode writes m into dst as little-endian float32 values in column-major
// order. dst must be at least UniformSize bytes.
func Encode(dst []byte, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Bytes returns m encoded as a new UniformSize byte slice.
func Bytes(m mgl32.Mat4) []byte {
	b := make([]byte, UniformSize)
	Encode(b, m)
	return b
}
