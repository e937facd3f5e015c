package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/unklstewy/skytrack/pkg/bodies"
)

// ReadPlanets decodes a JSON array of planets:
//
//	[{"name": "Mars", "orbit": {...}, "rate": {...}}]
func ReadPlanets(r io.Reader) ([]bodies.Planet, error) {
	var planets []bodies.Planet
	if err := json.NewDecoder(r).Decode(&planets); err != nil {
		return nil, fmt.Errorf("failed to decode planets: %w", err)
	}

	for i, p := range planets {
		if p.Name == "" {
			return nil, fmt.Errorf("planet %d has no name", i)
		}
		if p.Orbit.SemiMajorAxis <= 0 {
			return nil, fmt.Errorf("planet %s has invalid semi-major axis %f", p.Name, p.Orbit.SemiMajorAxis)
		}
		if p.Orbit.Eccentricity < 0 || p.Orbit.Eccentricity >= 1 {
			return nil, fmt.Errorf("planet %s has invalid eccentricity %f", p.Name, p.Orbit.Eccentricity)
		}
	}

	return planets, nil
}

// DefaultPlanets returns JPL's approximate Keplerian elements for the
// planets, valid 1800 AD - 2050 AD. The Earth is omitted since it cannot be
// observed from itself.
func DefaultPlanets() []bodies.Planet {
	return []bodies.Planet{
		{
			Name:  "Mercury",
			Orbit: bodies.Elements{SemiMajorAxis: 0.38709927, Eccentricity: 0.20563593, Inclination: 7.00497902, MeanLongitude: 252.25032350, LonPerihelion: 77.45779628, LonAscendingNode: 48.33076593},
			Rate:  bodies.Elements{SemiMajorAxis: 0.00000037, Eccentricity: 0.00001906, Inclination: -0.00594749, MeanLongitude: 149472.67411175, LonPerihelion: 0.16047689, LonAscendingNode: -0.12534081},
		},
		{
			Name:  "Venus",
			Orbit: bodies.Elements{SemiMajorAxis: 0.72333566, Eccentricity: 0.00677672, Inclination: 3.39467605, MeanLongitude: 181.97909950, LonPerihelion: 131.60246718, LonAscendingNode: 76.67984255},
			Rate:  bodies.Elements{SemiMajorAxis: 0.00000390, Eccentricity: -0.00004107, Inclination: -0.00078890, MeanLongitude: 58517.81538729, LonPerihelion: 0.00268329, LonAscendingNode: -0.27769418},
		},
		{
			Name:  "Mars",
			Orbit: bodies.Elements{SemiMajorAxis: 1.52371034, Eccentricity: 0.09339410, Inclination: 1.84969142, MeanLongitude: -4.55343205, LonPerihelion: -23.94362959, LonAscendingNode: 49.55953891},
			Rate:  bodies.Elements{SemiMajorAxis: 0.00001847, Eccentricity: 0.00007882, Inclination: -0.00813131, MeanLongitude: 19140.30268499, LonPerihelion: 0.44441088, LonAscendingNode: -0.29257343},
		},
		{
			Name:  "Jupiter",
			Orbit: bodies.Elements{SemiMajorAxis: 5.20288700, Eccentricity: 0.04838624, Inclination: 1.30439695, MeanLongitude: 34.39644051, LonPerihelion: 14.72847983, LonAscendingNode: 100.47390909},
			Rate:  bodies.Elements{SemiMajorAxis: -0.00011607, Eccentricity: -0.00013253, Inclination: -0.00183714, MeanLongitude: 3034.74612775, LonPerihelion: 0.21252668, LonAscendingNode: 0.20469106},
		},
		{
			Name:  "Saturn",
			Orbit: bodies.Elements{SemiMajorAxis: 9.53667594, Eccentricity: 0.05386179, Inclination: 2.48599187, MeanLongitude: 49.95424423, LonPerihelion: 92.59887831, LonAscendingNode: 113.66242448},
			Rate:  bodies.Elements{SemiMajorAxis: -0.00125060, Eccentricity: -0.00050991, Inclination: 0.00193609, MeanLongitude: 1222.49362201, LonPerihelion: -0.41897216, LonAscendingNode: -0.28867794},
		},
		{
			Name:  "Uranus",
			Orbit: bodies.Elements{SemiMajorAxis: 19.18916464, Eccentricity: 0.04725744, Inclination: 0.77263783, MeanLongitude: 313.23810451, LonPerihelion: 170.95427630, LonAscendingNode: 74.01692503},
			Rate:  bodies.Elements{SemiMajorAxis: -0.00196176, Eccentricity: -0.00004397, Inclination: -0.00242939, MeanLongitude: 428.48202785, LonPerihelion: 0.40805281, LonAscendingNode: 0.04240589},
		},
		{
			Name:  "Neptune",
			Orbit: bodies.Elements{SemiMajorAxis: 30.06992276, Eccentricity: 0.00859048, Inclination: 1.77004347, MeanLongitude: -55.12002969, LonPerihelion: 44.96476227, LonAscendingNode: 131.78422574},
			Rate:  bodies.Elements{SemiMajorAxis: 0.00026291, Eccentricity: 0.00005105, Inclination: 0.00035372, MeanLongitude: 218.45945325, LonPerihelion: -0.32241464, LonAscendingNode: -0.00508664},
		},
		{
			Name:  "Pluto",
			Orbit: bodies.Elements{SemiMajorAxis: 39.48211675, Eccentricity: 0.24882730, Inclination: 17.14001206, MeanLongitude: 238.92903833, LonPerihelion: 224.06891629, LonAscendingNode: 110.30393684},
			Rate:  bodies.Elements{SemiMajorAxis: -0.00031596, Eccentricity: 0.00005170, Inclination: 0.00004818, MeanLongitude: 145.20780515, LonPerihelion: -0.04062942, LonAscendingNode: -0.01183482},
		},
	}
}
