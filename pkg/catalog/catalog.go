// Package catalog loads and searches the object lists the tracker can
// point at: NGC 2000.0 deep-sky objects with their common names, and the
// planets' orbital elements.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/unklstewy/skytrack/pkg/bodies"
)

// Catalog is an in-memory, read-only index of planets and fixed bodies.
type Catalog struct {
	planets []bodies.Planet
	objects []bodies.FixedBody

	byDesignation map[string]int
	byName        map[string]int
}

// New builds a catalog from already parsed lists.
func New(planets []bodies.Planet, objects []bodies.FixedBody) *Catalog {
	c := &Catalog{
		planets:       planets,
		objects:       objects,
		byDesignation: make(map[string]int, len(objects)),
		byName:        make(map[string]int),
	}

	for i, obj := range objects {
		if _, exists := c.byDesignation[obj.Designation]; !exists {
			c.byDesignation[obj.Designation] = i
		}
		if obj.Name != "" {
			key := nameKey(obj.Name)
			if _, exists := c.byName[key]; !exists {
				c.byName[key] = i
			}
		}
	}

	return c
}

func nameKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Load reads the catalog files named in the paths. An empty planetsPath
// selects DefaultPlanets; an empty namesPath skips name back-filling; an
// empty ngcPath yields a planets-only catalog.
func Load(ngcPath, namesPath, planetsPath string) (*Catalog, error) {
	planets := DefaultPlanets()
	if planetsPath != "" {
		f, err := os.Open(planetsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open planets file: %w", err)
		}
		defer f.Close()

		planets, err = ReadPlanets(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", planetsPath, err)
		}
	}

	var objects []bodies.FixedBody
	if ngcPath != "" {
		f, err := os.Open(ngcPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open NGC catalog: %w", err)
		}
		defer f.Close()

		objects, err = ReadNGC(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ngcPath, err)
		}
	}

	if namesPath != "" {
		f, err := os.Open(namesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open names table: %w", err)
		}
		defer f.Close()

		names, err := ReadNames(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", namesPath, err)
		}
		ApplyNames(objects, names)
	}

	return New(planets, objects), nil
}

// Planets returns all planets in catalog order.
func (c *Catalog) Planets() []bodies.Planet {
	return append([]bodies.Planet(nil), c.planets...)
}

// Objects returns all fixed bodies in catalog order.
func (c *Catalog) Objects() []bodies.FixedBody {
	return append([]bodies.FixedBody(nil), c.objects...)
}

// Planet finds a planet by case-insensitive name.
func (c *Catalog) Planet(name string) (bodies.Planet, bool) {
	for _, p := range c.planets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return bodies.Planet{}, false
}

// Lookup finds a fixed body by designation ("NGC 224", "ngc224", "I1613")
// or, failing that, by its common name ("Andromeda Galaxy").
func (c *Catalog) Lookup(query string) (bodies.FixedBody, bool) {
	if i, ok := c.byDesignation[NormalizeDesignation(query)]; ok {
		return c.objects[i], true
	}
	if i, ok := c.byName[nameKey(query)]; ok {
		return c.objects[i], true
	}
	return bodies.FixedBody{}, false
}

// Filter narrows a Search. Zero values match everything.
type Filter struct {
	// Name matches a case-insensitive substring of the common name or designation
	Name string

	// Classifications restricts the object type
	Classifications []bodies.Classification

	// Constellation is the three-letter abbreviation
	Constellation string

	// MaxMagnitude drops objects fainter than this; objects without a
	// catalogued magnitude are dropped too
	MaxMagnitude float64

	// Limit caps the result count
	Limit int
}

func (f Filter) matches(obj bodies.FixedBody) bool {
	if f.Name != "" {
		needle := strings.ToLower(f.Name)
		if !strings.Contains(strings.ToLower(obj.Name), needle) &&
			!strings.Contains(strings.ToLower(obj.Designation), needle) {
			return false
		}
	}
	if len(f.Classifications) > 0 {
		found := false
		for _, c := range f.Classifications {
			if obj.Classification == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Constellation != "" && !strings.EqualFold(obj.Constellation, f.Constellation) {
		return false
	}
	if f.MaxMagnitude != 0 && (obj.Magnitude == 0 || obj.Magnitude > f.MaxMagnitude) {
		return false
	}
	return true
}

// Search returns matching fixed bodies, brightest first.
func (c *Catalog) Search(f Filter) []bodies.FixedBody {
	var results []bodies.FixedBody
	for _, obj := range c.objects {
		if f.matches(obj) {
			results = append(results, obj)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		mi, mj := results[i].Magnitude, results[j].Magnitude
		if mi == 0 {
			return false
		}
		if mj == 0 {
			return true
		}
		return mi < mj
	})

	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results
}
