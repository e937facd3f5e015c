package tracking

import (
	"math"

	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// LimitEvent describes where a target sits relative to the mount's safe
// altitude band.
type LimitEvent int

const (
	// WithinLimits means tracking can continue normally
	WithinLimits LimitEvent = iota

	// ZenithCrossing means the target is above MaxAltitude. Alt-az mounts
	// need very fast azimuth motion near the zenith.
	ZenithCrossing

	// HorizonCrossing means the target is below MinAltitude
	HorizonCrossing
)

// String returns the event name.
func (e LimitEvent) String() string {
	switch e {
	case WithinLimits:
		return "within limits"
	case ZenithCrossing:
		return "zenith crossing"
	case HorizonCrossing:
		return "horizon crossing"
	default:
		return "unknown"
	}
}

// Limits defines the safe tracking envelope of the mount.
type Limits struct {
	// MinAltitude is the minimum altitude in degrees
	// Below this, obstacles and atmospheric refraction become issues
	MinAltitude float64

	// MaxAltitude is the maximum altitude in degrees
	// Near zenith (90°), azimuth rates grow without bound
	MaxAltitude float64
}

// DefaultLimits returns the full visible hemisphere.
func DefaultLimits() Limits {
	return Limits{
		MinAltitude: 0.0,
		MaxAltitude: 90.0,
	}
}

// Check classifies a target position and returns a short recommendation.
func (l Limits) Check(target coordinates.Horizontal) (LimitEvent, string) {
	if target.Altitude < l.MinAltitude {
		return HorizonCrossing, "Target is below minimum altitude - the mount will point into the ground"
	}
	if target.Altitude > l.MaxAltitude {
		return ZenithCrossing, "Target near zenith - expect fast azimuth motion"
	}
	return WithinLimits, "Tracking OK"
}

// PredictCrossing estimates how many seconds until the target leaves the
// envelope, given two positions sampled interval seconds apart. It returns
// 0 when the target is already outside and -1 when no crossing is expected.
func (l Limits) PredictCrossing(current, future coordinates.Horizontal, interval float64) float64 {
	if current.Altitude > l.MaxAltitude || current.Altitude < l.MinAltitude {
		return 0
	}
	if interval <= 0 {
		return -1
	}

	rate := (future.Altitude - current.Altitude) / interval // degrees per second
	switch {
	case rate > 0 && l.MaxAltitude < 90.0:
		return (l.MaxAltitude - current.Altitude) / rate
	case rate < 0:
		return (current.Altitude - l.MinAltitude) / math.Abs(rate)
	}
	return -1
}
