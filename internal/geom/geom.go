// Package geom holds the small amount of vector math the positioner needs:
// offsets in an actor's local facing frame and the rounding rule used to decide
// whether an actor is rendered at its natural size.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Vec3 = mgl64.Vec3

// Axis names one component of an offset.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

func ParseAxis(s string) (Axis, bool) {
	switch Axis(s) {
	case AxisX, AxisY, AxisZ:
		return Axis(s), true
	case "x":
		return AxisX, true
	case "y":
		return AxisY, true
	case "z":
		return AxisZ, true
	}
	return "", false
}

func (a Axis) Index() int {
	switch a {
	case AxisX:
		return 0
	case AxisY:
		return 1
	case AxisZ:
		return 2
	}
	return -1
}

// WithAxis returns v with the named component replaced. Unknown axes leave v unchanged.
func WithAxis(v Vec3, a Axis, value float64) Vec3 {
	if i := a.Index(); i >= 0 {
		v[i] = value
	}
	return v
}

// RotateYaw turns an offset expressed in an actor's facing frame into world space.
// The host measures yaw clockwise about the vertical axis, so this is a rotation by -theta:
//
//	x' =  x*cos(theta) + y*sin(theta)
//	y' = -x*sin(theta) + y*cos(theta)
//	z' =  z
func RotateYaw(offset Vec3, theta float64) Vec3 {
	return mgl64.Rotate3DZ(-theta).Mul3x1(offset)
}

// ScalePercent rounds a scale multiplier to whole percent. The host stores scales as
// 32-bit floats, so the multiplication is done at that precision (0.995 -> 100, 1.005 -> 101).
func ScalePercent(scale float64) int {
	p := float32(scale) * 100
	return int(math.Round(float64(p)))
}

// IsNaturalScale reports whether scale rounds to exactly 100%.
func IsNaturalScale(scale float64) bool {
	return ScalePercent(scale) == 100
}
