package coordinates

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/astrotime"
)

// Vector3 is a Cartesian position.
type Vector3 struct {
	X, Y, Z float64
}

// Length returns the Euclidean norm of v.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v multiplied by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// Matrix3x3 is a row-major 3x3 matrix. Equality is exact comparison;
// matrices are always rebuilt from the same formulas, never accumulated.
type Matrix3x3 [3][3]float64

// Identity returns the identity matrix.
func Identity() Matrix3x3 {
	return Matrix3x3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Transpose returns the transpose of m, which for a rotation is its inverse.
func (m Matrix3x3) Transpose() Matrix3x3 {
	var t Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Mul returns the product m·o.
func (m Matrix3x3) Mul(o Matrix3x3) Matrix3x3 {
	var r Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// MulVec returns the product m·v.
func (m Matrix3x3) MulVec(v Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Axis selects the rotation axis of RotationMatrix.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// RotationMatrix returns the right-handed rotation by angle degrees about
// axis. Applied to a vector it turns the vector counterclockwise when
// looking down the axis toward the origin.
func RotationMatrix(axis Axis, angle float64) Matrix3x3 {
	c := astrotime.Cos(angle)
	s := astrotime.Sin(angle)

	switch axis {
	case AxisX:
		return Matrix3x3{
			{1, 0, 0},
			{0, c, -s},
			{0, s, c},
		}
	case AxisY:
		return Matrix3x3{
			{c, 0, s},
			{0, 1, 0},
			{-s, 0, c},
		}
	default:
		return Matrix3x3{
			{c, -s, 0},
			{s, c, 0},
			{0, 0, 1},
		}
	}
}

// EquatorialToVector converts spherical equatorial coordinates to a
// Cartesian vector with X toward the equinox and Z toward the pole.
func EquatorialToVector(e Equatorial) Vector3 {
	cosDec := astrotime.Cos(e.Declination)
	return Vector3{
		X: e.Radius * astrotime.Cos(e.RightAscension) * cosDec,
		Y: e.Radius * astrotime.Sin(e.RightAscension) * cosDec,
		Z: e.Radius * astrotime.Sin(e.Declination),
	}
}

// VectorToEquatorial is the inverse of EquatorialToVector. The right
// ascension is returned in [0, 360).
func VectorToEquatorial(v Vector3) Equatorial {
	return Equatorial{
		Radius:         v.Length(),
		RightAscension: NormalizeRightAscension(astrotime.Atan2(v.Y, v.X)),
		Declination:    astrotime.Atan2(v.Z, math.Sqrt(v.X*v.X+v.Y*v.Y)),
	}
}
