package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unklstewy/skytrack/pkg/bodies"
)

const ngcSample = `  224 Gx  00 42.7  +41 16    And 178.0   3.5  !!!eB,eL,vmE;= M31
I1613 Gx  01 04.8  +02 07    Cet  12.0   9.2  pB,vL,R,gbM

 1976 C+N 05 35.4  -05 27    Ori  66.0   4.0  !!! Theta1 Ori and the Great Nebula
 7000 Nb  20 58.8  +44 20    Cyg 120.0        ! North America Nebula
`

const namesSample = `Andromeda Galaxy                      224 
M 31                                  224 
Orion Nebula                         1976 with M42
Magellanic Cloud                          LMC
`

// TestParseNGCLine tests decoding of one fixed-width record.
func TestParseNGCLine(t *testing.T) {
	body, err := ParseNGCLine(" 1976 C+N 05 35.4  -05 27    Ori  66.0   4.0  !!! Theta1 Ori and the Great Nebula")
	if err != nil {
		t.Fatalf("ParseNGCLine failed: %v", err)
	}

	if body.Designation != "NGC 1976" {
		t.Errorf("Expected designation NGC 1976, got %s", body.Designation)
	}
	if body.Classification != bodies.ClusterWithNebulosity {
		t.Errorf("Expected cluster with nebulosity, got %s", body.Classification)
	}
	if math.Abs(body.Position.RightAscension-(5+35.4/60)*15) > 1e-9 {
		t.Errorf("Expected RA %.4f, got %.4f", (5+35.4/60)*15, body.Position.RightAscension)
	}
	if math.Abs(body.Position.Declination-(-(5 + 27.0/60))) > 1e-9 {
		t.Errorf("Expected Dec %.4f, got %.4f", -(5 + 27.0/60), body.Position.Declination)
	}
	if body.Position.Radius != 1 {
		t.Errorf("Expected unit radius, got %f", body.Position.Radius)
	}
	if body.Constellation != "Ori" {
		t.Errorf("Expected Ori, got %s", body.Constellation)
	}
	if body.Dimension != 66.0 || body.Magnitude != 4.0 {
		t.Errorf("Expected size 66.0 and magnitude 4.0, got %.1f and %.1f", body.Dimension, body.Magnitude)
	}
	if body.Description != "!!! Theta1 Ori and the Great Nebula" {
		t.Errorf("Unexpected description %q", body.Description)
	}
}

// TestParseNGCLineErrors tests rejection of malformed records.
func TestParseNGCLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"Empty", "   "},
		{"Unknown type", "  224 Zz  00 42.7  +41 16    And 178.0   3.5  x"},
		{"Bad RA", "  224 Gx  xx 42.7  +41 16    And 178.0   3.5  x"},
		{"Bad magnitude", "  224 Gx  00 42.7  +41 16    And 178.0   a.b  x"},
		{"Truncated", "  224 Gx  00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseNGCLine(tt.line); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// TestReadNGC tests reading a whole catalog.
func TestReadNGC(t *testing.T) {
	objects, err := ReadNGC(strings.NewReader(ngcSample))
	if err != nil {
		t.Fatalf("ReadNGC failed: %v", err)
	}
	if len(objects) != 4 {
		t.Fatalf("Expected 4 objects, got %d", len(objects))
	}
	if objects[1].Designation != "IC 1613" {
		t.Errorf("Expected IC 1613, got %s", objects[1].Designation)
	}
	if objects[3].Magnitude != 0 {
		t.Errorf("Expected missing magnitude to read as 0, got %f", objects[3].Magnitude)
	}

	t.Run("Malformed line reports its number", func(t *testing.T) {
		_, err := ReadNGC(strings.NewReader(ngcSample + "  999 Gx  00 4x.7  +41 16    And\n"))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Expected *ParseError, got %v", err)
		}
		if perr.Line != 6 {
			t.Errorf("Expected line 6, got %d", perr.Line)
		}
	})
}

// TestReadNames tests the common names table.
func TestReadNames(t *testing.T) {
	names, err := ReadNames(strings.NewReader(namesSample))
	if err != nil {
		t.Fatalf("ReadNames failed: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("Expected 3 names, got %d", len(names))
	}
	if names[2].Designation != "NGC 1976" || names[2].Comment != "with M42" {
		t.Errorf("Unexpected entry %+v", names[2])
	}

	objects, _ := ReadNGC(strings.NewReader(ngcSample))
	if n := ApplyNames(objects, names); n != 2 {
		t.Errorf("Expected 2 named objects, got %d", n)
	}
	if objects[0].Name != "Andromeda Galaxy" {
		t.Errorf("Expected first name to win, got %s", objects[0].Name)
	}
}

// TestNormalizeDesignation tests designation canonicalization.
func TestNormalizeDesignation(t *testing.T) {
	tests := map[string]string{
		"  224":   "NGC 224",
		"ngc 224": "NGC 224",
		"NGC0224": "NGC 224",
		"I1613":   "IC 1613",
		"ic 1613": "IC 1613",
		"M 31":    "M31",
		"1976":    "NGC 1976",
		"I   1":   "IC 1",
	}

	for in, expected := range tests {
		if got := NormalizeDesignation(in); got != expected {
			t.Errorf("NormalizeDesignation(%q): expected %q, got %q", in, expected, got)
		}
	}
}

// TestReadPlanets tests the planet JSON loader.
func TestReadPlanets(t *testing.T) {
	input := `[{"name": "Mars", "orbit": {"semi_major_axis": 1.52371034, "eccentricity": 0.0933941,
		"inclination": 1.84969142, "mean_longitude": -4.55343205, "lon_perihelion": -23.94362959,
		"lon_ascending_node": 49.55953891}, "rate": {"mean_longitude": 19140.30268499}}]`

	planets, err := ReadPlanets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPlanets failed: %v", err)
	}
	if len(planets) != 1 || planets[0].Name != "Mars" {
		t.Fatalf("Unexpected planets %+v", planets)
	}
	if planets[0].Rate.MeanLongitude != 19140.30268499 {
		t.Errorf("Expected rate to decode, got %f", planets[0].Rate.MeanLongitude)
	}

	bad := []string{
		`{"name": "Mars"}`,
		`[{"orbit": {"semi_major_axis": 1}}]`,
		`[{"name": "X", "orbit": {"semi_major_axis": 0}}]`,
		`[{"name": "X", "orbit": {"semi_major_axis": 1, "eccentricity": 1.2}}]`,
	}
	for _, in := range bad {
		if _, err := ReadPlanets(strings.NewReader(in)); err == nil {
			t.Errorf("Expected error for %s", in)
		}
	}
}

// TestDefaultPlanets tests the built-in element table.
func TestDefaultPlanets(t *testing.T) {
	planets := DefaultPlanets()
	if len(planets) != 8 {
		t.Fatalf("Expected 8 planets, got %d", len(planets))
	}
	for _, p := range planets {
		if p.Name == "Earth" {
			t.Error("Earth must not be in the observable list")
		}
		if p.Orbit.Eccentricity <= 0 || p.Orbit.Eccentricity >= 0.5 {
			t.Errorf("%s: eccentricity %f outside the solver's comfortable range", p.Name, p.Orbit.Eccentricity)
		}
	}
}

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	objects, err := ReadNGC(strings.NewReader(ngcSample))
	if err != nil {
		t.Fatalf("ReadNGC failed: %v", err)
	}
	names, err := ReadNames(strings.NewReader(namesSample))
	if err != nil {
		t.Fatalf("ReadNames failed: %v", err)
	}
	ApplyNames(objects, names)
	return New(DefaultPlanets(), objects)
}

// TestCatalogLookup tests designation and name lookup.
func TestCatalogLookup(t *testing.T) {
	c := sampleCatalog(t)

	for _, q := range []string{"NGC 224", "ngc224", "  224", "andromeda  galaxy"} {
		obj, ok := c.Lookup(q)
		if !ok || obj.Designation != "NGC 224" {
			t.Errorf("Lookup(%q): expected NGC 224, got %+v (found=%v)", q, obj.Designation, ok)
		}
	}

	if _, ok := c.Lookup("NGC 9999"); ok {
		t.Error("Expected NGC 9999 to be missing")
	}

	if p, ok := c.Planet("jupiter"); !ok || p.Name != "Jupiter" {
		t.Errorf("Expected Jupiter, got %+v", p)
	}
	if _, ok := c.Planet("Vulcan"); ok {
		t.Error("Expected Vulcan to be missing")
	}
}

// TestCatalogSearch tests filtering and ordering.
func TestCatalogSearch(t *testing.T) {
	c := sampleCatalog(t)

	t.Run("Everything, brightest first", func(t *testing.T) {
		results := c.Search(Filter{})
		if len(results) != 4 {
			t.Fatalf("Expected 4 results, got %d", len(results))
		}
		if results[0].Designation != "NGC 224" || results[3].Designation != "NGC 7000" {
			t.Errorf("Unexpected order: %s ... %s", results[0].Designation, results[3].Designation)
		}
	})

	t.Run("Classification", func(t *testing.T) {
		results := c.Search(Filter{Classifications: []bodies.Classification{bodies.Galaxy}})
		if len(results) != 2 {
			t.Errorf("Expected 2 galaxies, got %d", len(results))
		}
	})

	t.Run("Magnitude limit drops unknown magnitudes", func(t *testing.T) {
		results := c.Search(Filter{MaxMagnitude: 5})
		if len(results) != 2 {
			t.Errorf("Expected 2 results, got %d", len(results))
		}
	})

	t.Run("Name and constellation", func(t *testing.T) {
		results := c.Search(Filter{Name: "orion", Constellation: "ori"})
		if len(results) != 1 || results[0].Designation != "NGC 1976" {
			t.Errorf("Expected NGC 1976, got %+v", results)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		if results := c.Search(Filter{Limit: 1}); len(results) != 1 {
			t.Errorf("Expected 1 result, got %d", len(results))
		}
	})
}

// TestLoad tests loading from files.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	ngcPath := filepath.Join(dir, "ngc2000.dat")
	namesPath := filepath.Join(dir, "names.dat")
	if err := os.WriteFile(ngcPath, []byte(ngcSample), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(namesPath, []byte(namesSample), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(ngcPath, namesPath, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c.Objects()) != 4 || len(c.Planets()) != 8 {
		t.Errorf("Expected 4 objects and 8 planets, got %d and %d", len(c.Objects()), len(c.Planets()))
	}
	if obj, _ := c.Lookup("NGC 1976"); obj.Name != "Orion Nebula" {
		t.Errorf("Expected Orion Nebula, got %q", obj.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.dat"), "", ""); err == nil {
		t.Error("Expected error for missing file")
	}
}
