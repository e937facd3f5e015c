package tracking

import (
	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// lookahead is the sampling interval used to predict limit crossings.
const lookahead = 60

// Observation is where a body appears from a site at one instant.
type Observation struct {
	Name       string                 `json:"name"`
	Time       string                 `json:"time"`
	Equatorial coordinates.Equatorial `json:"equatorial"`
	Horizontal coordinates.Horizontal `json:"horizontal"`
	LimitEvent string                 `json:"limit_event"`
	Advice     string                 `json:"advice"`

	// SecondsToLimit is the predicted time until the body leaves the
	// limits: 0 when it is outside already, -1 when it is not expected to.
	SecondsToLimit float64 `json:"seconds_to_limit"`
}

// Visible reports whether the body is inside the limits.
func (o Observation) Visible() bool {
	return o.LimitEvent == WithinLimits.String()
}

// Observe computes the position of body seen from observer at utc and
// classifies it against limits.
func Observe(body bodies.Body, observer coordinates.Geographic, limits Limits, utc astrotime.DateTime) Observation {
	equatorial := body.EquatorialPosition(utc)
	now := coordinates.ObserveUTC(equatorial, observer, utc)
	later := bodies.Horizontal(body, observer, utc.AddSeconds(lookahead))

	event, advice := limits.Check(now)
	return Observation{
		Name:           body.DisplayName(),
		Time:           utc.String(),
		Equatorial:     equatorial,
		Horizontal:     now,
		LimitEvent:     event.String(),
		Advice:         advice,
		SecondsToLimit: limits.PredictCrossing(now, later, lookahead),
	}
}

// Observe computes body's current position from the tracker's site.
func (s *Service) Observe(body bodies.Body) Observation {
	cfg := s.Config()
	return Observe(body, cfg.Observer, cfg.Limits, astrotime.UtcNow())
}
