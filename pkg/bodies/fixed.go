package bodies

import (
	"strings"

	"github.com/unklstewy/skytrack/pkg/astrotime"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// CatalogEpoch is the reference epoch of catalog positions in Julian
// centuries relative to J2000.
const CatalogEpoch = -0.000012775

// Classification is the object type of a catalog entry.
type Classification int

const (
	Unidentified Classification = iota
	Galaxy
	OpenCluster
	GlobularCluster
	Nebula
	PlanetaryNebula
	ClusterWithNebulosity
	Asterism
	Knot
	TripleStar
	DoubleStar
	Star
	Uncertain
	NonExistent
	PlateDefect
)

// classificationCodes maps catalog type codes to classifications.
var classificationCodes = map[string]Classification{
	"":    Unidentified,
	"Gx":  Galaxy,
	"OC":  OpenCluster,
	"Gb":  GlobularCluster,
	"Nb":  Nebula,
	"Pl":  PlanetaryNebula,
	"C+N": ClusterWithNebulosity,
	"Ast": Asterism,
	"Kt":  Knot,
	"***": TripleStar,
	"D*":  DoubleStar,
	"*":   Star,
	"?":   Uncertain,
	"-":   NonExistent,
	"PD":  PlateDefect,
}

var classificationNames = [...]string{
	Unidentified:          "Unidentified",
	Galaxy:                "Galaxy",
	OpenCluster:           "Open cluster",
	GlobularCluster:       "Globular cluster",
	Nebula:                "Nebula",
	PlanetaryNebula:       "Planetary nebula",
	ClusterWithNebulosity: "Cluster with nebulosity",
	Asterism:              "Asterism",
	Knot:                  "Knot",
	TripleStar:            "Triple star",
	DoubleStar:            "Double star",
	Star:                  "Star",
	Uncertain:             "Uncertain",
	NonExistent:           "Non-existent",
	PlateDefect:           "Plate defect",
}

// ParseClassification maps a catalog type code such as "Gx" or "C+N" to a
// Classification. Unknown codes report ok=false and yield Unidentified.
func ParseClassification(code string) (Classification, bool) {
	c, ok := classificationCodes[strings.TrimSpace(code)]
	return c, ok
}

// Code returns the catalog type code.
func (c Classification) Code() string {
	for code, v := range classificationCodes {
		if v == c {
			return code
		}
	}
	return ""
}

// String returns a descriptive name.
func (c Classification) String() string {
	if c < 0 || int(c) >= len(classificationNames) {
		return "Unknown"
	}
	return classificationNames[c]
}

// FixedBody is a catalog object whose position does not change other than
// through precession of the reference frame.
type FixedBody struct {
	Name           string                 `json:"name"`
	Designation    string                 `json:"designation"`
	Description    string                 `json:"description"`
	Constellation  string                 `json:"constellation"`
	Dimension      float64                `json:"dimension"` // arcminutes
	Magnitude      float64                `json:"magnitude"`
	Classification Classification         `json:"classification"`
	Position       coordinates.Equatorial `json:"position"` // at CatalogEpoch
}

// DisplayName returns the common name when known, otherwise the designation.
func (f FixedBody) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Designation
}

// EquatorialPosition precesses the catalog position to the epoch of date.
func (f FixedBody) EquatorialPosition(date astrotime.DateTime) coordinates.Equatorial {
	m := coordinates.PrecessionMatrix(coordinates.PlaneEquatorial, CatalogEpoch, astrotime.JulianCenturies(date, false))
	return coordinates.VectorToEquatorial(m.MulVec(coordinates.EquatorialToVector(f.Position)))
}
