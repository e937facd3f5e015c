package coordinates

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/astrotime"
)

// ARCS is the number of arcseconds in one radian.
const ARCS = 3600.0 * 180.0 / math.Pi

// Plane is a fundamental reference plane.
type Plane int

const (
	// PlaneEcliptic is the plane of the Earth's orbit.
	PlaneEcliptic Plane = iota

	// PlaneEquatorial is the plane of the Earth's equator.
	PlaneEquatorial
)

// String returns the plane name.
func (p Plane) String() string {
	if p == PlaneEcliptic {
		return "ecliptic"
	}
	return "equatorial"
}

// EclipticDrift returns the mean obliquity of the ecliptic in degrees at t
// Julian centuries since J2000.
func EclipticDrift(t float64) float64 {
	return 23.43929111 - (46.8150+(0.00059-0.001813*t)*t)*t/3600.0
}

// ReferencePlaneMatrix returns the rotation that carries vectors from one
// reference plane to the other at epoch at (Julian centuries since J2000).
func ReferencePlaneMatrix(from, to Plane, at float64) Matrix3x3 {
	if from == to {
		return Identity()
	}

	m := RotationMatrix(AxisX, EclipticDrift(at))
	if from == PlaneEquatorial {
		return m.Transpose()
	}
	return m
}

// PrecessionMatrix returns the rotation that precesses vectors referenced
// to plane from epoch t1 to epoch t2, both in Julian centuries since J2000.
//
// The ecliptic matrix uses the angles Π, π and p_A of the precession of the
// ecliptic; the equatorial matrix uses the Newcomb angles ζ, z and θ.
func PrecessionMatrix(plane Plane, t1, t2 float64) Matrix3x3 {
	dt := t2 - t1

	if plane == PlaneEcliptic {
		pi := ((47.0029 - (0.06603-0.000598*t1)*t1) +
			((-0.03302+0.000598*t1)+0.000060*dt)*dt) * dt / ARCS
		bigPi := astrotime.Radians(174.876383889) +
			(((3289.4789+0.60622*t1)*t1)+
				((-869.8089-0.50491*t1)+0.03536*dt)*dt)/ARCS
		pA := ((5029.0966 + (2.22226-0.000042*t1)*t1) +
			((1.11113-0.000042*t1)-0.000006*dt)*dt) * dt / ARCS

		return RotationMatrix(AxisZ, astrotime.Degrees(bigPi+pA)).
			Mul(RotationMatrix(AxisX, -astrotime.Degrees(pi))).
			Mul(RotationMatrix(AxisZ, -astrotime.Degrees(bigPi)))
	}

	zeta := ((2306.2181 + (1.39656-0.000139*t1)*t1) +
		((0.30188-0.000344*t1)+0.017998*dt)*dt) * dt / ARCS
	z := zeta + ((0.79280+0.000411*t1)+0.000205*dt)*dt*dt/ARCS
	theta := ((2004.3109 - (0.85330+0.000217*t1)*t1) -
		((0.42665+0.000217*t1)+0.041833*dt)*dt) * dt / ARCS

	return RotationMatrix(AxisZ, astrotime.Degrees(z)).
		Mul(RotationMatrix(AxisY, -astrotime.Degrees(theta))).
		Mul(RotationMatrix(AxisZ, astrotime.Degrees(zeta)))
}
