package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unklstewy/skytrack/internal/auth"
	"github.com/unklstewy/skytrack/internal/db"
)

// userID returns the caller's id from the request token.
func userID(r *http.Request) int {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}

// siteID parses the {id} route parameter.
func siteID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid site ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// handleGetSites lists the caller's observation sites
func (s *Server) handleGetSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.List(r.Context(), userID(r))
	if err != nil {
		http.Error(w, "Failed to list observation sites", http.StatusInternalServerError)
		return
	}
	if sites == nil {
		sites = []db.ObservationSite{}
	}
	respondJSON(w, http.StatusOK, sites)
}

// handleCreateSite stores a new observation site
func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		TimeZone  string  `json:"timezone"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch {
	case req.Name == "":
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	case req.Latitude < -90 || req.Latitude > 90:
		http.Error(w, "latitude must be within ±90", http.StatusBadRequest)
		return
	case req.Longitude < -180 || req.Longitude > 180:
		http.Error(w, "longitude must be within ±180", http.StatusBadRequest)
		return
	}
	if req.TimeZone == "" {
		req.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		http.Error(w, "Unknown timezone", http.StatusBadRequest)
		return
	}

	site := &db.ObservationSite{
		UserID:    userID(r),
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		TimeZone:  req.TimeZone,
	}
	if err := s.sites.Create(r.Context(), site); err != nil {
		http.Error(w, "Failed to create observation site", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, site)
}

// handleDeleteSite removes one of the caller's sites
func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}

	if err := s.sites.Delete(r.Context(), id, userID(r)); err != nil {
		if errors.Is(err, db.ErrSiteNotFound) {
			http.Error(w, "Observation site not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete observation site", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleActivateSite makes a site active and points the tracker at it
func (s *Server) handleActivateSite(w http.ResponseWriter, r *http.Request) {
	id, ok := siteID(w, r)
	if !ok {
		return
	}
	uid := userID(r)

	if err := s.sites.SetActive(r.Context(), id, uid); err != nil {
		if errors.Is(err, db.ErrSiteNotFound) {
			http.Error(w, "Observation site not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to activate observation site", http.StatusInternalServerError)
		return
	}

	site, err := s.sites.GetActive(r.Context(), uid)
	if err != nil {
		http.Error(w, "Failed to load active observation site", http.StatusInternalServerError)
		return
	}

	s.tracker.SetObserver(site.Geographic())
	log.Printf("Observer moved to %s (%.4f°, %.4f°)", site.Name, site.Latitude, site.Longitude)
	respondJSON(w, http.StatusOK, site)
}
