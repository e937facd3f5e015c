package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/skytrack/pkg/catalog"
	"github.com/unklstewy/skytrack/pkg/config"
	"github.com/unklstewy/skytrack/pkg/serial"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Serial.HandshakeTimeoutMS = 100
	cfg.Tracker.FrameRateHz = 200

	tracker := tracking.NewService(serial.NewSimulator(serial.SimulatorOptions{}), cfg.TrackingConfig(), nil)
	if err := tracker.Connect(serial.SimulatorPortName, 115200); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tracker.Close() })

	return newModel(cfg, tracker, catalog.New(catalog.DefaultPlanets(), nil))
}

func press(m model, key tea.KeyMsg) model {
	next, _ := m.Update(key)
	return next.(model)
}

// TestSteeringKeys tests that arrow keys start steering and that held
// directions are released once the key stops repeating.
func TestSteeringKeys(t *testing.T) {
	m := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if !m.memory.Up.Load() {
		t.Fatal("Expected Up to be set")
	}
	h := m.tracker.Handle()
	if h == nil || h.Kind() != tracking.JobSteering {
		t.Fatalf("Expected a steering job, got %v", h)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	if !m.memory.Left.Load() {
		t.Error("Expected h to steer left")
	}
	if m.tracker.Handle() != h {
		t.Error("Expected the running steering job to be reused")
	}

	m.releaseStale(time.Now().Add(2 * steerHold))
	if m.memory.Up.Load() || m.memory.Left.Load() {
		t.Error("Expected stale directions to be released")
	}
	if len(m.pressed) != 0 {
		t.Errorf("Expected no held keys, got %v", m.pressed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Status() != tracking.StatusTracking {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for steering, status %s", h.Status())
		}
		time.Sleep(time.Millisecond)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if m.err != nil {
		t.Errorf("Expected abort to succeed, got %v", m.err)
	}
}

// TestTrackSelectedPlanet tests planet selection and the busy rejection
// of steering while tracking.
func TestTrackSelectedPlanet(t *testing.T) {
	m := newTestModel(t)
	if len(m.planets) == 0 {
		t.Fatal("Expected planets")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.selected != 1 {
		t.Errorf("Expected selection 1, got %d", m.selected)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	h := m.tracker.Handle()
	if h == nil || h.Kind() != tracking.JobTrack || h.Target() != m.planets[1].Name {
		t.Fatalf("Expected tracking %s, got %v", m.planets[1].Name, h)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.err == nil || !strings.Contains(m.err.Error(), "busy") {
		t.Errorf("Expected busy error, got %v", m.err)
	}

	if view := m.View(); !strings.Contains(view, "SKYTRACK") || !strings.Contains(view, m.planets[1].Name) {
		t.Error("Expected the view to show the title and planets")
	}
}

// TestAltAzToScreen tests the viewport mapping.
func TestAltAzToScreen(t *testing.T) {
	m := model{zoom: 1.0}

	x, y := m.altAzToScreen(0, 0)
	if x != 0 || y != skyHeight-2 {
		t.Errorf("Expected north horizon at (0,%d), got (%d,%d)", skyHeight-2, x, y)
	}

	x, y = m.altAzToScreen(90, 180)
	if x != (skyWidth-2)/2 || y != 0 {
		t.Errorf("Expected zenith south at (%d,0), got (%d,%d)", (skyWidth-2)/2, x, y)
	}

	m.zoom = 2.0
	if _, y := m.altAzToScreen(45, 0); y != 0 {
		t.Errorf("Expected 45° at the top when zoomed 2x, got row %d", y)
	}
}
