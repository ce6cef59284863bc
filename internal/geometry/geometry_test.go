package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuaternionFromYXZSingleAxis(t *testing.T) {
	h := math.Sqrt2 / 2

	tests := []struct {
		name             string
		roll, pitch, yaw float64
		want             Quaternion
	}{
		{"zero", 0, 0, 0, Quaternion{W: 1}},
		{"yaw 90", 0, 0, 90, Quaternion{Z: h, W: h}},
		{"pitch 90", 0, 90, 0, Quaternion{Y: -h, W: h}},
		{"roll 90", 90, 0, 0, Quaternion{X: -h, W: h}},
		{"yaw -90", 0, 0, -90, Quaternion{Z: -h, W: h}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := QuaternionFromYXZ(tc.roll, tc.pitch, tc.yaw)
			if !almostEqual(got.X, tc.want.X) || !almostEqual(got.Y, tc.want.Y) ||
				!almostEqual(got.Z, tc.want.Z) || !almostEqual(got.W, tc.want.W) {
				t.Errorf("QuaternionFromYXZ(%v, %v, %v) = %+v, want %+v",
					tc.roll, tc.pitch, tc.yaw, got, tc.want)
			}
		})
	}
}

func TestQuaternionFromYXZComposed(t *testing.T) {
	// Composition of unit rotations stays a unit quaternion.
	q := QuaternionFromYXZ(10, -35, 123)
	if !almostEqual(q.Norm(), 1) {
		t.Errorf("norm = %v, want 1", q.Norm())
	}

	// pitch 90 then yaw 90 in the YXZ order: q = Ry(-90)*Rz(90).
	got := QuaternionFromYXZ(0, 90, 90)
	want := aboutY(-math.Pi / 2).Mul(aboutZ(math.Pi / 2))
	if !almostEqual(got.X, want.X) || !almostEqual(got.Y, want.Y) ||
		!almostEqual(got.Z, want.Z) || !almostEqual(got.W, want.W) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNormalized(t *testing.T) {
	q := Quaternion{X: 2}.Normalized()
	if !almostEqual(q.X, 1) || !almostEqual(q.Norm(), 1) {
		t.Errorf("Normalized() = %+v", q)
	}
	if z := (Quaternion{}).Normalized(); z != Identity() {
		t.Errorf("zero quaternion normalized to %+v, want identity", z)
	}
}

func TestDegRadRoundTrip(t *testing.T) {
	if !almostEqual(90*DegToRad, math.Pi/2) {
		t.Errorf("90 deg = %v rad", 90*DegToRad)
	}
	if !almostEqual(math.Pi*RadToDeg, 180) {
		t.Errorf("pi rad = %v deg", math.Pi*RadToDeg)
	}
}
