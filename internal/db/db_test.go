package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/protocol"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// TestConnString tests the lib/pq connection string.
func TestConnString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		Username: "sky",
		Password: "secret",
		Database: "skytrack",
		SSLMode:  "disable",
	}

	want := "host=db.local port=5433 user=sky password=secret dbname=skytrack sslmode=disable"
	if got := connString(cfg); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestConnectUnreachable tests that a dead server yields an error.
func TestConnectUnreachable(t *testing.T) {
	cfg := config.DefaultConfig().Database
	cfg.Host = "127.0.0.1"
	cfg.Port = 1

	db, err := Connect(cfg)
	if err == nil {
		db.Close()
		t.Fatal("Expected error connecting to a closed port")
	}
	if !strings.Contains(err.Error(), "failed to ping database") {
		t.Errorf("Expected ping error, got: %v", err)
	}
}

// TestReconnectWithRetryCanceled tests that the backoff wait honors ctx.
func TestReconnectWithRetryCanceled(t *testing.T) {
	cfg := config.DefaultConfig().Database
	cfg.Host = "127.0.0.1"
	cfg.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ReconnectWithRetry(ctx, cfg, 0, time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 6*time.Second {
		t.Errorf("Expected prompt return, took %v", elapsed)
	}
}

// TestIsConnectionError tests transient error classification.
func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Bad connection", driver.ErrBadConn, true},
		{"Wrapped bad connection", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"Admin shutdown class 08", &pq.Error{Code: "08006"}, true},
		{"Unique violation", &pq.Error{Code: "23505"}, false},
		{"Refused", errors.New("dial tcp: connection refused"), true},
		{"Syntax error", errors.New("pq: syntax error at or near"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestIsUniqueViolation tests the SQLSTATE check.
func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Error("Expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("Expected foreign key violation not to match")
	}
	if isUniqueViolation(nil) {
		t.Error("Expected nil not to match")
	}
}

// TestWithRetry tests that only connection failures are retried.
func TestWithRetry(t *testing.T) {
	t.Run("Statement error is not retried", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			return &pq.Error{Code: "42601"}
		}, 3)

		if err == nil {
			t.Error("Expected error")
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Canceled during wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := WithRetry(ctx, func() error {
			attempts++
			cancel()
			return driver.ErrBadConn
		}, 3)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("Success", func(t *testing.T) {
		if err := WithRetry(context.Background(), func() error { return nil }, 0); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})
}

// TestBuildSearchQuery tests SQL generation from a catalog filter.
func TestBuildSearchQuery(t *testing.T) {
	t.Run("Empty filter", func(t *testing.T) {
		query, args := buildSearchQuery(catalog.Filter{})
		if strings.Contains(query, "WHERE") {
			t.Errorf("Expected no WHERE clause, got %s", query)
		}
		if len(args) != 0 {
			t.Errorf("Expected no args, got %v", args)
		}
	})

	t.Run("All fields", func(t *testing.T) {
		query, args := buildSearchQuery(catalog.Filter{
			Name:            "Nebula",
			Classifications: []bodies.Classification{bodies.Nebula, bodies.PlanetaryNebula},
			Constellation:   "Ori",
			MaxMagnitude:    6,
			Limit:           10,
		})

		for _, fragment := range []string{
			"LOWER(name) LIKE $1 OR LOWER(designation) LIKE $1",
			"classification = ANY($2)",
			"LOWER(constellation) = $3",
			"magnitude <= $4",
			"LIMIT $5",
		} {
			if !strings.Contains(query, fragment) {
				t.Errorf("Expected query to contain %q, got %s", fragment, query)
			}
		}
		if len(args) != 5 {
			t.Fatalf("Expected 5 args, got %d", len(args))
		}
		if args[0] != "%nebula%" || args[2] != "ori" || args[3] != 6.0 || args[4] != 10 {
			t.Errorf("Unexpected args %v", args)
		}
	})
}

// TestArchivedFrom tests the stored form of a history entry.
func TestArchivedFrom(t *testing.T) {
	now := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	e := tracking.HistoryEntry{
		Command:   protocol.CommandMove,
		Size:      4,
		Payload:   []byte{0x00, 0x00, 0xc0, 0x3f},
		Direction: tracking.Outgoing,
		Time:      now,
	}

	a := archivedFrom("night-1", e)
	if a.Command != "Move" || a.Direction != "out" || a.Size != 4 {
		t.Errorf("Unexpected archive %+v", a)
	}
	if a.Payload != "0000c03f" {
		t.Errorf("Expected hex payload 0000c03f, got %s", a.Payload)
	}
	if !a.ExchangedAt.Equal(now) || a.Session != "night-1" {
		t.Errorf("Unexpected time or session %+v", a)
	}
}

// TestHealthCheckNil tests the nil guard.
func TestHealthCheckNil(t *testing.T) {
	if HealthCheck(context.Background(), nil) {
		t.Error("Expected nil database to be unhealthy")
	}
}

// testDB connects to the database named by SKYTRACK_TEST_DB_HOST or skips.
func testDB(t *testing.T) *DB {
	t.Helper()
	host := os.Getenv("SKYTRACK_TEST_DB_HOST")
	if host == "" {
		t.Skip("SKYTRACK_TEST_DB_HOST not set")
	}

	cfg := config.DefaultConfig().Database
	cfg.Host = host
	cfg.Password = os.Getenv("SKYTRACK_TEST_DB_PASSWORD")

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return db
}

// TestCatalogRepository round-trips catalog rows through PostgreSQL.
func TestCatalogRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCatalogRepository(db)

	objects, err := catalog.ReadNGC(strings.NewReader(" 1976 C+N 05 35.4  -05 27    Ori  66.0   4.0  !!! Theta1 Ori and the Great Nebula\n"))
	if err != nil {
		t.Fatal(err)
	}
	objects[0].Name = "Orion Nebula"

	if n, err := repo.ImportFixedBodies(ctx, objects); err != nil || n != 1 {
		t.Fatalf("ImportFixedBodies: %d, %v", n, err)
	}

	got, err := repo.GetFixedBody(ctx, "ngc1976")
	if err != nil {
		t.Fatalf("GetFixedBody failed: %v", err)
	}
	if got.Name != "Orion Nebula" || got.Classification != bodies.ClusterWithNebulosity {
		t.Errorf("Unexpected object %+v", got)
	}

	if _, err := repo.GetFixedBody(ctx, "NGC 99999"); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("Expected ErrBodyNotFound, got %v", err)
	}

	if err := repo.ImportPlanets(ctx, catalog.DefaultPlanets()); err != nil {
		t.Fatalf("ImportPlanets failed: %v", err)
	}
	cat, err := repo.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if _, ok := cat.Planet("Mars"); !ok {
		t.Error("Expected Mars in the loaded catalog")
	}
	if _, ok := cat.Lookup("Orion Nebula"); !ok {
		t.Error("Expected Orion Nebula in the loaded catalog")
	}
}
