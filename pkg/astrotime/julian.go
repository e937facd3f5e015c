package astrotime

import "math"

// Epoch constants.
const (
	// MJDOffset converts a Mean Julian Day Number to a Julian Day Number.
	MJDOffset = 2400000.5

	// J2000 is the Julian Day Number of 2000-01-01 12:00:00 TT.
	J2000 = 2451545.0

	// DaysPerCentury is the length of a Julian century in days.
	DaysPerCentury = 36525.0

	secondsPerDay = 86400.0
)

// MeanJulianDayNumber returns the modified Julian day number of d,
// including the fractional day from the time fields.
//
// Dates up to and including 1582-10-04 are read as Julian calendar dates,
// later ones as Gregorian.
func MeanJulianDayNumber(d DateTime) float64 {
	year, month := d.Year, d.Month
	if month <= 2 {
		month += 12
		year--
	}

	var b int
	if 10000*year+100*month+d.Day <= 15821004 {
		b = -2 + (year+4716)/4 - 1179
	} else {
		b = year/400 - year/100 + year/4
	}

	midnight := 365*year - 679004 + b + int(30.6001*float64(month+1)) + d.Day
	fraction := (float64(d.Hour) +
		float64(d.Minute)/60.0 +
		float64(d.Second)/3600.0 +
		float64(d.Millisecond)/3600000.0) / 24.0

	return float64(midnight) + fraction
}

// JulianDayNumber returns the Julian day number of d.
func JulianDayNumber(d DateTime) float64 {
	return MeanJulianDayNumber(d) + MJDOffset
}

// JulianCenturies returns the number of Julian centuries between J2000 and
// d. With floor set, the Julian day number is rounded down first, which
// pins the result to the preceding noon.
func JulianCenturies(d DateTime, floor bool) float64 {
	jdn := JulianDayNumber(d)
	if floor {
		jdn = math.Floor(jdn)
	}
	return (jdn - J2000) / DaysPerCentury
}

// GreenwichMeanSiderealTime returns the mean sidereal time at Greenwich
// for a UTC calendar value, in degrees within [0, 360).
//
// IAU 1982:
//
//	GMST = 24110.54841 + 8640184.812866*T0 + 1.0027379093*UT + (0.093104 - 6.2e-6*T)*T²  [s]
//
// where T0 counts centuries up to 0h UT of the date and UT is the elapsed
// time of that day in seconds.
func GreenwichMeanSiderealTime(utc DateTime) float64 {
	mjd := MeanJulianDayNumber(utc)
	mjd0 := math.Floor(mjd)
	ut := secondsPerDay * (mjd - mjd0)
	t0 := (mjd0 - 51544.5) / DaysPerCentury
	t := (mjd - 51544.5) / DaysPerCentury

	gmst := 24110.54841 + 8640184.812866*t0 + 1.0027379093*ut +
		(0.093104-6.2e-6*t)*t*t

	return Mod(360.0/secondsPerDay*Mod(gmst, secondsPerDay), 360.0)
}
