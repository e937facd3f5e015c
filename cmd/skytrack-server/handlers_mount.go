package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unklstewy/skytrack/internal/db"
	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/coordinates"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// mountStatus is the response of GET /mount/status.
type mountStatus struct {
	tracking.Snapshot
	Port string `json:"port"`
}

// jobResponse describes an accepted job.
type jobResponse struct {
	Kind     tracking.JobKind `json:"kind"`
	Target   string           `json:"target"`
	Status   tracking.Status  `json:"status"`
	Begin    string           `json:"begin"`
	Duration float64          `json:"duration_seconds,omitempty"`
}

func newJobResponse(h *tracking.Handle, duration time.Duration) jobResponse {
	return jobResponse{
		Kind:     h.Kind(),
		Target:   h.Target(),
		Status:   h.Status(),
		Begin:    h.Begin().String(),
		Duration: duration.Seconds(),
	}
}

// historyView is one frame of GET /mount/history.
type historyView struct {
	Command   string             `json:"command"`
	Size      int                `json:"size"`
	Payload   string             `json:"payload"`
	Direction tracking.Direction `json:"direction"`
	Time      time.Time          `json:"time"`
}

// respondSubmitError maps a rejected submission to an HTTP status.
func respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, tracking.ErrNotConnected):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, tracking.ErrInvalidSteering):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

// requireConnected rejects mount jobs while the link is down, so a request
// fails fast instead of starting a job that can only fail.
func (s *Server) requireConnected(w http.ResponseWriter) bool {
	if !s.tracker.IsConnected() {
		respondSubmitError(w, tracking.ErrNotConnected)
		return false
	}
	return true
}

// handleMountStatus returns the tracker snapshot
func (s *Server) handleMountStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, mountStatus{
		Snapshot: s.tracker.Snapshot(),
		Port:     s.tracker.PortName(),
	})
}

// handleMountHistory returns the newest ?limit= frames, oldest first
func (s *Server) handleMountHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.tracker.History()
	if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}

	out := make([]historyView, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyView{
			Command:   e.Command.String(),
			Size:      e.Size,
			Payload:   hex.EncodeToString(e.Payload),
			Direction: e.Direction,
			Time:      e.Time,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleConnect opens the serial link
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Port     string `json:"port"`
		BaudRate int    `json:"baud_rate"`
	}{
		Port:     s.cfg.Serial.Port,
		BaudRate: s.cfg.Serial.BaudRate,
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Port == "" {
		http.Error(w, "No serial port given", http.StatusBadRequest)
		return
	}
	if s.tracker.IsConnected() {
		http.Error(w, fmt.Sprintf("Already connected to %s", s.tracker.PortName()), http.StatusConflict)
		return
	}

	if err := s.tracker.Connect(req.Port, req.BaudRate); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"port":      req.Port,
	})
}

// handleDisconnect closes the serial link
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Disconnect(); err != nil {
		if errors.Is(err, tracking.ErrNotConnected) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"connected": false})
}

// handleMove slews the mount to a horizontal position
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Altitude *float64 `json:"altitude"`
		Azimuth  *float64 `json:"azimuth"`
	}
	if err := decodeBody(r, &req); err != nil || req.Altitude == nil || req.Azimuth == nil {
		http.Error(w, "altitude and azimuth are required", http.StatusBadRequest)
		return
	}
	if *req.Altitude < -90 || *req.Altitude > 90 {
		http.Error(w, "altitude must be within ±90", http.StatusBadRequest)
		return
	}
	if !s.requireConnected(w) {
		return
	}

	target := coordinates.Horizontal{
		Altitude: *req.Altitude,
		Azimuth:  coordinates.NormalizeAzimuth(*req.Azimuth),
	}
	h, err := s.tracker.Submit(target)
	if err != nil {
		respondSubmitError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, newJobResponse(h, 0))
}

// handleAbort stops a tracking job
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.Abort() {
		http.Error(w, "No tracking job to abort", http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"aborted": true})
}

// handleConfigure overlays the request on the current driver settings and
// sends them to the controller. It returns once the controller replied.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	cfg := s.tracker.Config()
	driver := config.DriverConfig{
		RMSCurrentMA: cfg.Driver.RMSCurrent,
		GearRatio:    cfg.Driver.GearRatio,
		Microsteps:   cfg.Driver.Microsteps,
		HomeAltitude: cfg.Driver.HomeAltitude,
		HomeAzimuth:  cfg.Driver.HomeAzimuth,
	}
	if err := decodeBody(r, &driver); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if driver.RMSCurrentMA <= 0 || driver.GearRatio <= 0 || driver.Microsteps <= 0 {
		http.Error(w, "rms_current_ma, gear_ratio and microsteps must be positive", http.StatusBadRequest)
		return
	}
	if !s.requireConnected(w) {
		return
	}

	cfg.Driver = tracking.DriverConfig{
		RMSCurrent:   driver.RMSCurrentMA,
		GearRatio:    driver.GearRatio,
		Microsteps:   driver.Microsteps,
		HomeAltitude: driver.HomeAltitude,
		HomeAzimuth:  driver.HomeAzimuth,
	}
	if err := s.tracker.SetConfig(cfg); err != nil {
		respondSubmitError(w, err)
		return
	}
	if err := s.tracker.UpdateConfig(r.Context()); err != nil {
		respondSubmitError(w, err)
		return
	}

	log.Printf("Driver configured: %.0f mA, gear %.0f, %.0f microsteps",
		driver.RMSCurrentMA, driver.GearRatio, driver.Microsteps)
	respondJSON(w, http.StatusOK, driver)
}

// trackingDuration reads ?duration= in seconds.
func (s *Server) trackingDuration(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("duration")
	if v == "" {
		return s.cfg.Tracker.DefaultDuration(), nil
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// submitTracking starts a tracking job for body.
func (s *Server) submitTracking(w http.ResponseWriter, r *http.Request, body bodies.Body) {
	duration, err := s.trackingDuration(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.requireConnected(w) {
		return
	}

	h, err := s.tracker.SubmitBody(body, duration)
	if err != nil {
		respondSubmitError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, newJobResponse(h, duration))
}

// handleTrackPlanet tracks a planet by name
func (s *Server) handleTrackPlanet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	planet, ok := s.catalog.Planet(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown planet %q", name), http.StatusNotFound)
		return
	}
	s.submitTracking(w, r, planet)
}

// handleTrackObject tracks a catalog object by designation or name
func (s *Server) handleTrackObject(w http.ResponseWriter, r *http.Request) {
	designation := chi.URLParam(r, "designation")
	obj, ok := s.catalog.Lookup(designation)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown object %q", designation), http.StatusNotFound)
		return
	}
	s.submitTracking(w, r, obj)
}

// handleArchiveHistory copies the in-memory frame history to the database
func (s *Server) handleArchiveHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Session == "" {
		req.Session = "session-" + time.Now().UTC().Format("20060102-150405")
	}

	n, err := s.archive.Archive(r.Context(), req.Session, s.tracker.History())
	if err != nil {
		log.Printf("Failed to archive history: %v", err)
		http.Error(w, "Failed to archive history", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session":  req.Session,
		"archived": n,
	})
}

const (
	defaultArchiveLimit = 100
	maxArchiveLimit     = 1000
)

// handleArchivedHistory returns stored frames, newest first, filtered by
// ?session= and capped by ?limit= (default 100, at most 1000)
func (s *Server) handleArchivedHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultArchiveLimit)
	switch {
	case limit == 0:
		limit = defaultArchiveLimit
	case limit > maxArchiveLimit:
		limit = maxArchiveLimit
	}

	entries, err := s.archive.Recent(r.Context(), r.URL.Query().Get("session"), limit)
	if err != nil {
		log.Printf("Failed to read archived history: %v", err)
		http.Error(w, "Failed to read archived history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []db.ArchivedExchange{}
	}
	respondJSON(w, http.StatusOK, entries)
}
