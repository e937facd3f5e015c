package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
)

const ngcSample = `  224 Gx  00 42.7  +41 16    And 178.0   3.5  !!!eB,eL,vmE;= M31
  598 Gx  01 33.9  +30 39    Tri  62.0   5.7  !!!eB,eL,vgbMN;= M33
 1976 C+N 05 35.4  -05 27    Ori  66.0   4.0  !!! Theta1 Ori and the Great Nebula
`

const namesSample = `Andromeda Galaxy                      224
Orion Nebula                         1976 with M42
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// TestReadSources tests loading the catalog files for import.
func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CatalogConfig{
		NGCPath:   writeFile(t, dir, "ngc2000.dat", ngcSample),
		NamesPath: writeFile(t, dir, "names.dat", namesSample),
	}

	src, err := readSources(cfg)
	if err != nil {
		t.Fatalf("readSources failed: %v", err)
	}
	if len(src.objects) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(src.objects))
	}
	if src.named != 2 {
		t.Errorf("Expected 2 named objects, got %d", src.named)
	}
	if len(src.planets) != len(catalog.DefaultPlanets()) {
		t.Errorf("Expected the built-in planets, got %d", len(src.planets))
	}

	summary := src.summary()
	if len(summary) != 2 {
		t.Fatalf("Expected 2 classifications, got %v", summary)
	}
	if !strings.HasPrefix(summary[0], bodies.Galaxy.String()) || !strings.HasSuffix(summary[0], " 2") {
		t.Errorf("Expected galaxies first with 2 objects, got %q", summary[0])
	}
}

// TestReadSourcesErrors tests missing and malformed files.
func TestReadSourcesErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing catalog", func(t *testing.T) {
		_, err := readSources(config.CatalogConfig{NGCPath: filepath.Join(dir, "absent.dat")})
		if err == nil || !strings.Contains(err.Error(), "failed to open NGC catalog") {
			t.Errorf("Expected an open error, got %v", err)
		}
	})

	t.Run("Malformed line", func(t *testing.T) {
		path := writeFile(t, dir, "bad.dat", ngcSample+" 7000 Nb  xx 58.8  +44 20    Cyg 120.0\n")
		_, err := readSources(config.CatalogConfig{NGCPath: path})
		var perr *catalog.ParseError
		if err == nil || !errors.As(err, &perr) || perr.Line != 4 {
			t.Errorf("Expected a parse error on line 4, got %v", err)
		}
	})
}
