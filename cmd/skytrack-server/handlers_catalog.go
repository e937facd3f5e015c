package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// objectView is a catalog object plus where it is right now.
type objectView struct {
	bodies.FixedBody
	Type        string               `json:"type"`
	Observation tracking.Observation `json:"observation"`
}

// handleGetPlanets lists the planets with their current positions
func (s *Server) handleGetPlanets(w http.ResponseWriter, r *http.Request) {
	planets := s.catalog.Planets()
	out := make([]tracking.Observation, 0, len(planets)+1)
	out = append(out, s.tracker.Observe(bodies.Sun{}))
	for _, p := range planets {
		out = append(out, s.tracker.Observe(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// parseFilter builds a catalog filter from the query string:
// ?name=&type=Gx,OC&constellation=&max_magnitude=&limit=&visible=true
func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Name:          q.Get("name"),
		Constellation: q.Get("constellation"),
		Limit:         queryInt(r, "limit", 100),
	}

	if types := q.Get("type"); types != "" {
		for _, code := range strings.Split(types, ",") {
			c, ok := bodies.ParseClassification(code)
			if !ok {
				return f, fmt.Errorf("unknown object type %q", code)
			}
			f.Classifications = append(f.Classifications, c)
		}
	}

	if mag := q.Get("max_magnitude"); mag != "" {
		v, err := strconv.ParseFloat(mag, 64)
		if err != nil {
			return f, fmt.Errorf("invalid max_magnitude %q", mag)
		}
		f.MaxMagnitude = v
	}
	return f, nil
}

// handleSearchObjects searches the fixed-body catalog. With ?visible=true
// only objects inside the altitude limits are returned.
func (s *Server) handleSearchObjects(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	visibleOnly := r.URL.Query().Get("visible") == "true"

	limit := f.Limit
	if visibleOnly {
		// Filter on visibility before applying the limit
		f.Limit = 0
	}

	out := []objectView{}
	for _, obj := range s.catalog.Search(f) {
		obs := s.tracker.Observe(obj)
		if visibleOnly && !obs.Visible() {
			continue
		}
		out = append(out, objectView{FixedBody: obj, Type: obj.Classification.String(), Observation: obs})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// resolveBody finds a body by name: the Sun, a planet, or a catalog object.
func (s *Server) resolveBody(name string) (bodies.Body, bool) {
	if strings.EqualFold(name, "sun") {
		return bodies.Sun{}, true
	}
	if p, ok := s.catalog.Planet(name); ok {
		return p, true
	}
	if obj, ok := s.catalog.Lookup(name); ok {
		return obj, true
	}
	return nil, false
}

// handleObserve reports where a named body is right now
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "designation")
	body, ok := s.resolveBody(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown object %q", name), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, s.tracker.Observe(body))
}
