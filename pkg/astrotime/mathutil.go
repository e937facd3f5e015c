package astrotime

import "math"

// Conversion factors between degrees and radians.
const (
	DegreesToRadians = math.Pi / 180.0
	RadiansToDegrees = 180.0 / math.Pi
)

// Every trigonometric helper in this package takes and returns degrees.
// Formulas across skytrack are written in degrees; only these helpers
// ever see radians.

// Radians converts an angle in degrees to radians.
func Radians(deg float64) float64 {
	return deg * DegreesToRadians
}

// Degrees converts an angle in radians to degrees.
func Degrees(rad float64) float64 {
	return rad * RadiansToDegrees
}

// Mod returns x modulo m with the sign of m, so Mod(-30, 360) == 330.
func Mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}

// Sin returns the sine of an angle given in degrees.
func Sin(deg float64) float64 { return math.Sin(Radians(deg)) }

// Cos returns the cosine of an angle given in degrees.
func Cos(deg float64) float64 { return math.Cos(Radians(deg)) }

// Tan returns the tangent of an angle given in degrees.
func Tan(deg float64) float64 { return math.Tan(Radians(deg)) }

// Asin returns the arcsine of x in degrees.
func Asin(x float64) float64 { return Degrees(math.Asin(x)) }

// Acos returns the arccosine of x in degrees.
func Acos(x float64) float64 { return Degrees(math.Acos(x)) }

// Atan returns the arctangent of x in degrees.
func Atan(x float64) float64 { return Degrees(math.Atan(x)) }

// Atan2 returns the angle of the point (x, y) in degrees, in (-180, 180].
// The argument order follows math.Atan2: y first.
func Atan2(y, x float64) float64 { return Degrees(math.Atan2(y, x)) }
