// Package camera implements the fly camera and its uniform buffer
// layout. The renderer treats the packed buffer as opaque bytes.
package camera

import (
	"encoding/binary"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// UniformSize is the byte size of the packed camera uniform:
// five vec4 slots (position, forward, right, up, parameters).
const UniformSize = 80

// Movement and look tuning, matching the shader's expectations.
const (
	DefaultFov      = 1.0471976 // 60 degrees
	lookSensitivity = 0.002
	pitchLimit      = 1.55334
	moveSpeed       = 10.0
	boostMultiplier = 3.0
)

// Input carries one tick's worth of movement key state.
type Input struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
	Boost         bool
}

// New creates a camera at the default vantage point looking down
// the negative Z axis.
func New(aspect float32) *Camera {
	return &Camera{
		position: glm.Vec3{0, 1.5, 6},
		yaw:      -math.Pi / 2,
		fov:      DefaultFov,
		aspect:   aspect,
	}
}

// Camera holds position and orientation as yaw/pitch angles, the
// orthonormal basis is derived on demand.
type Camera struct {
	position   glm.Vec3
	yaw, pitch float32
	fov        float32
	aspect     float32
	sliceY     float32
}

// Position returns the camera position.
func (c *Camera) Position() glm.Vec3 {
	return c.position
}

// SetSliceY sets the scene slice parameter passed to the shader.
func (c *Camera) SetSliceY(y float32) {
	c.sliceY = y
}

// Rotate applies relative mouse motion. Pitch is clamped short of
// the poles so the basis never degenerates.
func (c *Camera) Rotate(dx, dy float32) {
	c.yaw += dx * lookSensitivity
	c.pitch -= dy * lookSensitivity
	if c.pitch > pitchLimit {
		c.pitch = pitchLimit
	}
	if c.pitch < -pitchLimit {
		c.pitch = -pitchLimit
	}
}

// Move advances the position by one tick of key input. Forward and
// back follow the full view direction, strafing stays in the ground
// plane, up and down are world axis moves.
func (c *Camera) Move(in Input, dt float32) {
	speed := float32(moveSpeed)
	if in.Boost {
		speed *= boostMultiplier
	}
	step := speed * dt

	forward, right, _ := c.Basis()
	flatRight := glm.Vec3{right.X(), 0, right.Z()}
	if flatRight.Len() > 0 {
		flatRight = flatRight.Normalize()
	}

	if in.Forward {
		c.position = c.position.Add(forward.Mul(step))
	}
	if in.Back {
		c.position = c.position.Sub(forward.Mul(step))
	}
	if in.Right {
		c.position = c.position.Add(flatRight.Mul(step))
	}
	if in.Left {
		c.position = c.position.Sub(flatRight.Mul(step))
	}
	if in.Up {
		c.position = c.position.Add(glm.Vec3{0, step, 0})
	}
	if in.Down {
		c.position = c.position.Sub(glm.Vec3{0, step, 0})
	}
}

// Basis derives the orthonormal forward/right/up vectors from the
// current yaw and pitch.
func (c *Camera) Basis() (forward, right, up glm.Vec3) {
	cosPitch := float32(math.Cos(float64(c.pitch)))
	forward = glm.Vec3{
		cosPitch * float32(math.Cos(float64(c.yaw))),
		float32(math.Sin(float64(c.pitch))),
		cosPitch * float32(math.Sin(float64(c.yaw))),
	}.Normalize()
	right = forward.Cross(glm.Vec3{0, 1, 0}).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// PackUniform writes the fixed layout uniform into dst, which must
// hold at least UniformSize bytes. Layout: four vec4 basis slots
// followed by (fov, aspect, sliceY, 0).
func (c *Camera) PackUniform(dst []byte) {
	forward, right, up := c.Basis()

	putVec4(dst[0:], c.position, 0)
	putVec4(dst[16:], forward, 0)
	putVec4(dst[32:], right, 0)
	putVec4(dst[48:], up, 0)

	putFloat32(dst[64:], c.fov)
	putFloat32(dst[68:], c.aspect)
	putFloat32(dst[72:], c.sliceY)
	putFloat32(dst[76:], 0)
}

func putVec4(dst []byte, v glm.Vec3, w float32) {
	putFloat32(dst[0:], v.X())
	putFloat32(dst[4:], v.Y())
	putFloat32(dst[8:], v.Z())
	putFloat32(dst[12:], w)
}

func putFloat32(dst []byte, f float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
}
