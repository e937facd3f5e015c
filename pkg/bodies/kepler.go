package bodies

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/astrotime"
)

const (
	keplerTolerance     = 1e-12
	keplerMaxIterations = 10
)

// EccentricAnomaly solves Kepler's equation M = E - e°·sin(E) for the
// eccentric anomaly E by Newton iteration. M and E are in degrees; e° is
// the eccentricity expressed in degrees.
//
// The iteration stops once the correction drops below 1e-12 or after ten
// steps, whichever comes first. The second return value is the number of
// iterations performed.
func EccentricAnomaly(meanAnomaly, eccentricity float64) (float64, int) {
	eDeg := astrotime.Degrees(eccentricity)
	e := meanAnomaly + eDeg*astrotime.Sin(meanAnomaly)

	iterations := 0
	for iterations < keplerMaxIterations {
		iterations++
		delta := (meanAnomaly - (e - eDeg*astrotime.Sin(e))) / (1.0 - eccentricity*astrotime.Cos(e))
		e += delta
		if math.Abs(delta) <= keplerTolerance {
			break
		}
	}

	return e, iterations
}
