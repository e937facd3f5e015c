package coordinates

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/astrotime"
)

// LocalSiderealTime returns the local sidereal time in degrees [0, 360)
// for an observer at longitude (degrees, positive east) at a UTC instant.
func LocalSiderealTime(longitude float64, utc astrotime.DateTime) float64 {
	return astrotime.Mod(astrotime.GreenwichMeanSiderealTime(utc)+longitude, 360.0)
}

// LocalEquatorialToHorizontal converts a declination and hour angle to
// altitude and azimuth for an observer at latitude.
//
// The unit vector built from (hourAngle, declination) is tilted about the
// Y axis by -(90° - latitude), which puts the zenith on Z and south on X.
// Azimuth is then read from the XY plane and shifted by 180° so that it is
// measured from north.
func LocalEquatorialToHorizontal(declination, hourAngle, latitude float64) Horizontal {
	v := EquatorialToVector(Equatorial{Radius: 1, RightAscension: hourAngle, Declination: declination})
	r := RotationMatrix(AxisY, -(90.0 - latitude)).MulVec(v)

	return Horizontal{
		Azimuth:  NormalizeAzimuth(astrotime.Atan2(r.Y, r.X) + 180.0),
		Altitude: astrotime.Asin(clampUnit(r.Z)),
	}
}

// HorizontalToLocalEquatorial inverts LocalEquatorialToHorizontal and
// returns the hour angle and declination in degrees.
func HorizontalToLocalEquatorial(h Horizontal, latitude float64) (hourAngle, declination float64) {
	v := EquatorialToVector(Equatorial{Radius: 1, RightAscension: h.Azimuth - 180.0, Declination: h.Altitude})
	r := RotationMatrix(AxisY, 90.0-latitude).MulVec(v)

	return astrotime.Mod(astrotime.Atan2(r.Y, r.X), 360.0), astrotime.Asin(clampUnit(r.Z))
}

// ObserveGeographic projects an equatorial position onto the horizon of an
// observer. date is local calendar time and is converted to UTC first.
func ObserveGeographic(equatorial Equatorial, observer Geographic, date astrotime.DateTime) Horizontal {
	return ObserveUTC(equatorial, observer, astrotime.Utc(date))
}

// ObserveUTC is ObserveGeographic for a date that is already UTC.
func ObserveUTC(equatorial Equatorial, observer Geographic, utc astrotime.DateTime) Horizontal {
	lst := LocalSiderealTime(observer.Longitude, utc)
	hourAngle := lst - equatorial.RightAscension
	return LocalEquatorialToHorizontal(equatorial.Declination, hourAngle, observer.Latitude)
}

// HorizontalToEquatorial converts an observed alt/az back to right
// ascension and declination at a UTC instant. Radius is set to 1.
func HorizontalToEquatorial(h Horizontal, observer Geographic, utc astrotime.DateTime) Equatorial {
	hourAngle, declination := HorizontalToLocalEquatorial(h, observer.Latitude)
	lst := LocalSiderealTime(observer.Longitude, utc)
	return Equatorial{
		Radius:         1,
		RightAscension: NormalizeRightAscension(lst - hourAngle),
		Declination:    declination,
	}
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
