// Skytrack Web Server
// Provides the REST API for mount control, the object catalog and
// observation sites.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/unklstewy/skytrack/internal/auth"
	"github.com/unklstewy/skytrack/internal/db"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/serial"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.String("port", "", "HTTP server port (overrides server.port)")
)

func main() {
	flag.Parse()

	log.Println("🚀 Starting Skytrack Web Server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	secret, err := cfg.Server.Secret()
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	ctx := context.Background()

	database, err := db.ReconnectWithRetry(ctx, cfg.Database, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	authSvc := auth.NewService(auth.Config{
		JWTSecret:     secret,
		TokenDuration: time.Duration(cfg.Server.TokenHours) * time.Hour,
	})

	userRepo := db.NewUserRepository(database)
	if err := seedAdmin(ctx, userRepo, authSvc); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	cat := loadCatalog(ctx, cfg, database)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := tracking.NewMetrics(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	var link serial.Port
	if cfg.Serial.Port == serial.SimulatorPortName {
		link = serial.NewSimulator(serial.SimulatorOptions{})
		log.Println("🔭 Using the simulated mount controller")
	} else {
		link = serial.NewDevice()
	}

	tracker := tracking.NewService(link, cfg.TrackingConfig(), metrics)
	defer tracker.Close()

	if cfg.Serial.Port != "" {
		if err := tracker.Connect(cfg.Serial.Port, cfg.Serial.BaudRate); err != nil {
			log.Printf("Warning: %v (connect later with POST /api/v1/mount/connect)", err)
		}
	}

	srv := NewServer(Deps{
		Config:   cfg,
		Auth:     authSvc,
		Tracker:  tracker,
		Catalog:  cat,
		Users:    userRepo,
		Sites:    db.NewSiteRepository(database),
		Archive:  db.NewHistoryRepository(database),
		Registry: registry,
		Health: func(ctx context.Context) bool {
			return db.HealthCheck(ctx, database)
		},
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("📡 Server listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down server...")

	if tracker.Abort() {
		log.Println("Aborted the running tracking job")
	}

	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}

// seedAdmin creates the admin account on first start, when no users exist.
func seedAdmin(ctx context.Context, users *db.UserRepository, authSvc *auth.Service) error {
	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("SKYTRACK_ADMIN_PASSWORD")
	if password == "" {
		log.Println("Warning: no users exist and SKYTRACK_ADMIN_PASSWORD is not set; login is impossible")
		return nil
	}

	hash, err := authSvc.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &db.User{Username: "admin", PasswordHash: hash, Role: db.RoleAdmin, IsActive: true}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Println("✓ Created admin account")
	return nil
}

// loadCatalog prefers the imported catalog in PostgreSQL and falls back to
// the files named in the config.
func loadCatalog(ctx context.Context, cfg *config.Config, database *db.DB) *catalog.Catalog {
	cat, err := db.NewCatalogRepository(database).LoadCatalog(ctx)
	if err == nil && len(cat.Objects()) > 0 {
		log.Printf("✓ Loaded %d objects and %d planets from the database", len(cat.Objects()), len(cat.Planets()))
		return cat
	}
	if err != nil {
		log.Printf("Warning: failed to load catalog from database: %v", err)
	}

	cat, err = catalog.Load(cfg.Catalog.NGCPath, cfg.Catalog.NamesPath, cfg.Catalog.PlanetsPath)
	if err != nil {
		log.Printf("Warning: failed to load catalog files: %v", err)
		return catalog.New(catalog.DefaultPlanets(), nil)
	}
	log.Printf("✓ Loaded %d objects and %d planets from files", len(cat.Objects()), len(cat.Planets()))
	return cat
}
