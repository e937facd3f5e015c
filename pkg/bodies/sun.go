package bodies

import (
	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// Sun is the geocentric Sun, derived from the Earth's orbit.
type Sun struct{}

// DisplayName implements Body.
func (Sun) DisplayName() string { return "Sun" }

// EquatorialPosition returns the Sun's position at the UTC instant date.
func (Sun) EquatorialPosition(date astrotime.DateTime) coordinates.Equatorial {
	t := astrotime.JulianCenturies(date, false)
	return eclipticToEquatorOfDate(EarthHeliocentric(t).Scale(-1), t)
}
