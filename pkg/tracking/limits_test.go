package tracking

import (
	"math"
	"testing"

	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// TestDefaultLimits tests default limit creation.
func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()

	if limits.MinAltitude != 0.0 {
		t.Errorf("Expected min altitude 0.0, got %f", limits.MinAltitude)
	}
	if limits.MaxAltitude != 90.0 {
		t.Errorf("Expected max altitude 90.0, got %f", limits.MaxAltitude)
	}
}

// TestLimitsCheck tests event detection.
func TestLimitsCheck(t *testing.T) {
	limits := Limits{MinAltitude: 15, MaxAltitude: 85}

	tests := []struct {
		name     string
		altitude float64
		expected LimitEvent
	}{
		{"Below minimum altitude", 10, HorizonCrossing},
		{"Below horizon", -30, HorizonCrossing},
		{"Normal", 45, WithinLimits},
		{"At minimum", 15, WithinLimits},
		{"Near zenith", 88, ZenithCrossing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, msg := limits.Check(coordinates.Horizontal{Altitude: tt.altitude, Azimuth: 180})
			if event != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, event)
			}
			if msg == "" {
				t.Error("Expected non-empty message")
			}
		})
	}
}

// TestPredictCrossing tests crossing time estimates.
func TestPredictCrossing(t *testing.T) {
	limits := Limits{MinAltitude: 10, MaxAltitude: 80}

	t.Run("Setting target", func(t *testing.T) {
		got := limits.PredictCrossing(
			coordinates.Horizontal{Altitude: 20},
			coordinates.Horizontal{Altitude: 19},
			60,
		)
		if math.Abs(got-600) > 1e-9 {
			t.Errorf("Expected 600 seconds, got %f", got)
		}
	})

	t.Run("Rising target", func(t *testing.T) {
		got := limits.PredictCrossing(
			coordinates.Horizontal{Altitude: 70},
			coordinates.Horizontal{Altitude: 72},
			10,
		)
		if math.Abs(got-50) > 1e-9 {
			t.Errorf("Expected 50 seconds, got %f", got)
		}
	})

	t.Run("Already outside", func(t *testing.T) {
		if got := limits.PredictCrossing(coordinates.Horizontal{Altitude: 5}, coordinates.Horizontal{Altitude: 6}, 1); got != 0 {
			t.Errorf("Expected 0, got %f", got)
		}
	})

	t.Run("Stationary", func(t *testing.T) {
		if got := limits.PredictCrossing(coordinates.Horizontal{Altitude: 40}, coordinates.Horizontal{Altitude: 40}, 1); got != -1 {
			t.Errorf("Expected -1, got %f", got)
		}
	})
}

// TestLimitEventString tests event names.
func TestLimitEventString(t *testing.T) {
	if HorizonCrossing.String() != "horizon crossing" {
		t.Errorf("Unexpected name %s", HorizonCrossing)
	}
	if LimitEvent(42).String() != "unknown" {
		t.Errorf("Unexpected name %s", LimitEvent(42))
	}
}
