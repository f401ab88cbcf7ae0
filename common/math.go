package common

import (
	"math"
	"unsafe"
)

// Mat4 is a 4x4 float matrix stored in column-major order (WebGPU convention).
type Mat4 [16]float32

// Vec3 is a three component float vector.
type Vec3 [3]float32

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input and must not be modified.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Mul returns m * o.
//
// Parameters:
//   - o: right-hand matrix
//
// Returns:
//   - Mat4: the product
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Perspective builds a perspective projection matrix for the WebGPU clip space depth range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	out := Identity4()
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
	return out
}

// ModelMatrix builds a model matrix from a translation, an Euler rotation (applied Y * X * Z) and a scale.
//
// Parameters:
//   - pos: translation in world space
//   - rot: rotation angles in radians around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - Mat4: the model matrix
func ModelMatrix(pos, rot, scale Vec3) Mat4 {
	cx, sx := float32(math.Cos(float64(rot[0]))), float32(math.Sin(float64(rot[0])))
	cy, sy := float32(math.Cos(float64(rot[1]))), float32(math.Sin(float64(rot[1])))
	cz, sz := float32(math.Cos(float64(rot[2]))), float32(math.Sin(float64(rot[2])))

	return Mat4{
		(cy*cz + sy*sx*sz) * scale[0], (cx * sz) * scale[0], (-sy*cz + cy*sx*sz) * scale[0], 0,
		(cy*-sz + sy*sx*cz) * scale[1], (cx * cz) * scale[1], (sy*sz + cy*sx*cz) * scale[1], 0,
		(sy * cx) * scale[2], (-sx) * scale[2], (cy * cx) * scale[2], 0,
		pos[0], pos[1], pos[2], 1,
	}
}

// LookAt builds a view matrix for a camera at eye looking at center.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector, typically (0, 1, 0)
//
// Returns:
//   - Mat4: the view matrix
func LookAt(eye, center, up Vec3) Mat4 {
	z := normalize(Vec3{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize(cross(up, z))
	y := cross(z, x)

	return Mat4{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-dot(x, eye), -dot(y, eye), -dot(z, eye), 1,
	}
}

func cross(a, b Vec3) Vec3 {
	return Vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// normalize returns v scaled to unit length. A zero vector is returned unchanged.
func normalize(v Vec3) Vec3 {
	l := float32(math.Sqrt(float64(dot(v, v))))
	if l == 0 {
		return v
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}
