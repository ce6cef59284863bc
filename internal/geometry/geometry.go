package geometry

import (
	"math"
)

const (
	// DegToRad converts degrees to radians.
	DegToRad = math.Pi / 180.0
	// RadToDeg converts radians to degrees.
	RadToDeg = 180.0 / math.Pi
)

// Quaternion is a rotation in Hamilton convention (W scalar part).
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity returns the no-rotation quaternion.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Mul returns q * r (apply r first, then q).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Norm returns the quaternion magnitude.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalized returns q scaled to unit length. The identity is returned for
// a zero quaternion.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 {
		return Identity()
	}
	return Quaternion{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

func aboutX(rad float64) Quaternion {
	return Quaternion{X: math.Sin(rad / 2), W: math.Cos(rad / 2)}
}

func aboutY(rad float64) Quaternion {
	return Quaternion{Y: math.Sin(rad / 2), W: math.Cos(rad / 2)}
}

func aboutZ(rad float64) Quaternion {
	return Quaternion{Z: math.Sin(rad / 2), W: math.Cos(rad / 2)}
}

// QuaternionFromYXZ builds the camera mount orientation from gimbal euler
// angles in degrees. Rotation order is Y (pitch, negated), then X (roll,
// negated), then Z (yaw):
//
//	q = Ry(-pitch) * Rx(-roll) * Rz(yaw)
//
// Pitch and roll are negated because the mount reports them with the
// opposite sign of the camera frame.
func QuaternionFromYXZ(rollDeg, pitchDeg, yawDeg float64) Quaternion {
	return aboutY(-DegToRad * pitchDeg).
		Mul(aboutX(-DegToRad * rollDeg)).
		Mul(aboutZ(DegToRad * yawDeg))
}
