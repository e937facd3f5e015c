// Package bodies provides the position models for objects the mount can
// follow: catalog objects with a stored equatorial position, planets
// described by Keplerian elements, and the Sun.
//
// Every model answers the same question: where is the body, in equatorial
// coordinates referred to the mean equinox of date, at a given instant?
package bodies

import (
	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// Body is anything that can report its apparent equatorial position.
type Body interface {
	// DisplayName returns a human readable label for logs and status lines
	DisplayName() string

	// EquatorialPosition returns the position at the UTC instant date
	EquatorialPosition(date astrotime.DateTime) coordinates.Equatorial
}

// Horizontal is a convenience wrapper projecting a body onto an observer's
// horizon at a UTC instant.
func Horizontal(b Body, observer coordinates.Geographic, utc astrotime.DateTime) coordinates.Horizontal {
	return coordinates.ObserveUTC(b.EquatorialPosition(utc), observer, utc)
}
