package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklstewy/skytrack/internal/auth"
	"github.com/unklstewy/skytrack/internal/db"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// userStore is the part of db.UserRepository the server needs.
type userStore interface {
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	UpdateLastLogin(ctx context.Context, userID int) error
	Create(ctx context.Context, user *db.User) error
	List(ctx context.Context, limit, offset int) ([]*db.User, error)
}

// siteStore is the part of db.SiteRepository the server needs.
type siteStore interface {
	List(ctx context.Context, userID int) ([]db.ObservationSite, error)
	GetActive(ctx context.Context, userID int) (*db.ObservationSite, error)
	Create(ctx context.Context, site *db.ObservationSite) error
	Delete(ctx context.Context, siteID, userID int) error
	SetActive(ctx context.Context, siteID, userID int) error
}

// historyArchive stores tracker frame history.
type historyArchive interface {
	Archive(ctx context.Context, session string, entries []tracking.HistoryEntry) (int, error)
	Recent(ctx context.Context, session string, limit int) ([]db.ArchivedExchange, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config   *config.Config
	Auth     *auth.Service
	Tracker  *tracking.Service
	Catalog  *catalog.Catalog
	Users    userStore
	Sites    siteStore
	Archive  historyArchive
	Registry prometheus.Gatherer
	Health   func(ctx context.Context) bool
}

// Server holds the HTTP router and its dependencies
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	authSvc *auth.Service
	tracker *tracking.Service
	catalog *catalog.Catalog
	users   userStore
	sites   siteStore
	archive historyArchive
	metrics http.Handler
	health  func(ctx context.Context) bool

	// closing ends every status stream on Close
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a server and registers its routes.
func NewServer(d Deps) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     d.Config,
		authSvc: d.Auth,
		tracker: d.Tracker,
		catalog: d.Catalog,
		users:   d.Users,
		sites:   d.Sites,
		archive: d.Archive,
		health:  d.Health,
		closing: make(chan struct{}),
	}
	if d.Registry != nil {
		s.metrics = promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})
	} else {
		s.metrics = promhttp.Handler()
	}
	if s.health == nil {
		s.health = func(context.Context) bool { return false }
	}

	s.setupRoutes()
	return s
}

// Close ends the open status streams. http.Server.Shutdown does not wait
// for hijacked connections, so call Close first.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", s.handleLogin)

		// Read-only routes (any authenticated user)
		r.Group(func(r chi.Router) {
			r.Use(s.authSvc.Middleware)
			r.Use(auth.RequireRole(auth.RoleViewer))

			r.Get("/auth/me", s.handleGetCurrentUser)

			r.Get("/mount/status", s.handleMountStatus)
			r.Get("/mount/history", s.handleMountHistory)
			r.Get("/mount/stream", s.handleMountStream)
			r.Get("/mount/history/archive", s.handleArchivedHistory)

			r.Get("/catalog/planets", s.handleGetPlanets)
			r.Get("/catalog/objects", s.handleSearchObjects)
			r.Get("/observe/{designation}", s.handleObserve)

			r.Get("/sites", s.handleGetSites)
			r.Post("/sites", s.handleCreateSite)
			r.Delete("/sites/{id}", s.handleDeleteSite)
			r.Post("/sites/{id}/activate", s.handleActivateSite)
		})

		// Mount control
		r.Group(func(r chi.Router) {
			r.Use(s.authSvc.Middleware)
			r.Use(auth.RequireRole(auth.RoleOperator))

			r.Post("/mount/connect", s.handleConnect)
			r.Post("/mount/disconnect", s.handleDisconnect)
			r.Post("/mount/move", s.handleMove)
			r.Post("/mount/abort", s.handleAbort)
			r.Post("/mount/configure", s.handleConfigure)
			r.Post("/mount/track/planet/{name}", s.handleTrackPlanet)
			r.Post("/mount/track/object/{designation}", s.handleTrackObject)
			r.Post("/mount/history/archive", s.handleArchiveHistory)
		})

		// User management
		r.Group(func(r chi.Router) {
			r.Use(s.authSvc.Middleware)
			r.Use(auth.RequireRole(auth.RoleAdmin))

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
		})
	})
}

// handleHealth reports liveness plus the state of the mount link and the
// database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.health(r.Context())
	status := "ok"
	if !dbOK {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"database":        dbOK,
		"mount_connected": s.tracker.IsConnected(),
	})
}

// respondJSON writes data as a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// decodeBody decodes an optional JSON request body into v. An empty body
// leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
