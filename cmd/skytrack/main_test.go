package main

import (
	"strings"
	"testing"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
)

// TestFindBody tests target resolution from the command line flags.
func TestFindBody(t *testing.T) {
	m31 := bodies.FixedBody{Name: "Andromeda Galaxy", Designation: "NGC 224"}
	cat := catalog.New(catalog.DefaultPlanets(), []bodies.FixedBody{m31})

	tests := []struct {
		name    string
		planet  string
		object  string
		want    string
		wantErr string
	}{
		{"Planet", "jupiter", "", "Jupiter", ""},
		{"Designation", "", "ngc224", "Andromeda Galaxy", ""},
		{"Common name", "", "andromeda galaxy", "Andromeda Galaxy", ""},
		{"Sun refused", "Sun", "", "", "Sun"},
		{"Unknown planet", "Vulcan", "", "", "known: "},
		{"Unknown object", "", "NGC 7000", "", "unknown object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := findBody(cat, tt.planet, tt.object)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if body.DisplayName() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, body.DisplayName())
			}
		})
	}

	t.Run("Empty catalog", func(t *testing.T) {
		_, err := findBody(catalog.New(nil, nil), "", "NGC 224")
		if err == nil || !strings.Contains(err.Error(), "-catalog") {
			t.Errorf("Expected a hint to load a catalog, got %v", err)
		}
	})
}
