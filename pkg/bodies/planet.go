package bodies

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// Elements is a set of Keplerian orbital elements. As a rate set, every
// field is the change per Julian century.
type Elements struct {
	SemiMajorAxis    float64 `json:"semi_major_axis"`    // AU
	Eccentricity     float64 `json:"eccentricity"`       // dimensionless
	Inclination      float64 `json:"inclination"`        // degrees
	MeanLongitude    float64 `json:"mean_longitude"`     // degrees
	LonPerihelion    float64 `json:"lon_perihelion"`     // degrees
	LonAscendingNode float64 `json:"lon_ascending_node"` // degrees
}

// At extrapolates the elements linearly to t Julian centuries after J2000
// using rate.
func (e Elements) At(rate Elements, t float64) Elements {
	return Elements{
		SemiMajorAxis:    e.SemiMajorAxis + rate.SemiMajorAxis*t,
		Eccentricity:     e.Eccentricity + rate.Eccentricity*t,
		Inclination:      e.Inclination + rate.Inclination*t,
		MeanLongitude:    e.MeanLongitude + rate.MeanLongitude*t,
		LonPerihelion:    e.LonPerihelion + rate.LonPerihelion*t,
		LonAscendingNode: e.LonAscendingNode + rate.LonAscendingNode*t,
	}
}

// Heliocentric returns the heliocentric position in the J2000 ecliptic
// frame, in AU.
func (e Elements) Heliocentric() coordinates.Vector3 {
	perihelion := e.LonPerihelion - e.LonAscendingNode
	meanAnomaly := astrotime.Mod(e.MeanLongitude-e.LonPerihelion, 360.0)
	anomaly, _ := EccentricAnomaly(meanAnomaly, e.Eccentricity)

	orbital := coordinates.Vector3{
		X: e.SemiMajorAxis * (astrotime.Cos(anomaly) - e.Eccentricity),
		Y: e.SemiMajorAxis * math.Sqrt(1.0-e.Eccentricity*e.Eccentricity) * astrotime.Sin(anomaly),
	}

	orientation := coordinates.RotationMatrix(coordinates.AxisZ, e.LonAscendingNode).
		Mul(coordinates.RotationMatrix(coordinates.AxisX, e.Inclination)).
		Mul(coordinates.RotationMatrix(coordinates.AxisZ, perihelion))

	return orientation.MulVec(orbital)
}

// Earth-Moon barycenter, J2000 elements and rates per century.
var (
	earthOrbit = Elements{
		SemiMajorAxis:    1.00000261,
		Eccentricity:     0.01671123,
		Inclination:      -0.00001531,
		MeanLongitude:    100.46457166,
		LonPerihelion:    102.93768193,
		LonAscendingNode: 0.0,
	}
	earthRate = Elements{
		SemiMajorAxis:    0.00000562,
		Eccentricity:     -0.00004392,
		Inclination:      -0.01294668,
		MeanLongitude:    35999.37244981,
		LonPerihelion:    0.32327364,
		LonAscendingNode: 0.0,
	}
)

// EarthHeliocentric returns the Earth's heliocentric ecliptic position at t
// Julian centuries since J2000.
func EarthHeliocentric(t float64) coordinates.Vector3 {
	return earthOrbit.At(earthRate, t).Heliocentric()
}

// Planet is a solar system body described by its J2000 orbital elements
// and their secular rates.
type Planet struct {
	Name  string   `json:"name"`
	Orbit Elements `json:"orbit"`
	Rate  Elements `json:"rate"`
}

// DisplayName implements Body.
func (p Planet) DisplayName() string { return p.Name }

// EquatorialPosition returns the geocentric position of the planet at the
// UTC instant date. Radius is the Earth distance in AU.
func (p Planet) EquatorialPosition(date astrotime.DateTime) coordinates.Equatorial {
	t := astrotime.JulianCenturies(date, false)
	geocentric := p.Orbit.At(p.Rate, t).Heliocentric().Sub(EarthHeliocentric(t))
	return eclipticToEquatorOfDate(geocentric, t)
}

// eclipticToEquatorOfDate rotates a J2000 ecliptic vector into the equator
// and equinox of t.
func eclipticToEquatorOfDate(v coordinates.Vector3, t float64) coordinates.Equatorial {
	m := coordinates.PrecessionMatrix(coordinates.PlaneEquatorial, 0, t).
		Mul(coordinates.ReferencePlaneMatrix(coordinates.PlaneEcliptic, coordinates.PlaneEquatorial, 0))
	return coordinates.VectorToEquatorial(m.MulVec(v))
}
