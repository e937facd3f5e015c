// Package coordinates holds the sky and Earth coordinate records, the
// vector and rotation-matrix primitives they are converted through, and
// the projection of equatorial positions onto an observer's horizon.
//
// All angles are in degrees.
package coordinates

import "github.com/unklstewy/skytrack/pkg/astrotime"

// Equatorial is a position referenced to the Earth's equator and the
// vernal equinox of some epoch.
type Equatorial struct {
	// Radius is the distance in the unit of the producing model (AU for
	// planets, 1 for catalog objects)
	Radius float64 `json:"radius"`

	// RightAscension in degrees (0-360), measured eastward along the equator
	RightAscension float64 `json:"right_ascension"`

	// Declination in degrees (-90 to +90)
	Declination float64 `json:"declination"`
}

// Horizontal is a position in the observer's local frame. This is the
// natural coordinate system of an alt-azimuth mount.
type Horizontal struct {
	// Azimuth in degrees from north (0-360)
	// 0/360 = North, 90 = East, 180 = South, 270 = West
	Azimuth float64 `json:"azimuth"`

	// Altitude in degrees above the horizon
	// 0 = horizon, 90 = zenith, negative values are below the horizon
	Altitude float64 `json:"altitude"`
}

// Geographic is the observer's position on the Earth's surface.
type Geographic struct {
	// Latitude in decimal degrees, positive north
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees, positive east
	Longitude float64 `json:"longitude"`
}

// NormalizeAzimuth maps an azimuth into [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	return astrotime.Mod(azimuth, 360.0)
}

// NormalizeRightAscension maps a right ascension in degrees into [0, 360).
func NormalizeRightAscension(ra float64) float64 {
	return astrotime.Mod(ra, 360.0)
}

// RightAscensionHours converts a right ascension in degrees to hours.
func RightAscensionHours(ra float64) float64 {
	return NormalizeRightAscension(ra) / 15.0
}

// AngularSeparation returns the great-circle angle between two horizontal
// positions in degrees.
func AngularSeparation(a, b Horizontal) float64 {
	cos := astrotime.Sin(a.Altitude)*astrotime.Sin(b.Altitude) +
		astrotime.Cos(a.Altitude)*astrotime.Cos(b.Altitude)*astrotime.Cos(a.Azimuth-b.Azimuth)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return astrotime.Acos(cos)
}
