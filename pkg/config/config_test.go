package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Serial defaults
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("Expected baud rate 115200, got %d", cfg.Serial.BaudRate)
	}
	if cfg.Serial.HandshakeTimeoutMS != 750 {
		t.Errorf("Expected handshake timeout 750ms, got %d", cfg.Serial.HandshakeTimeoutMS)
	}

	// Tracker defaults
	if cfg.Tracker.AngularSpeed != 2.0 {
		t.Errorf("Expected angular speed 2.0, got %f", cfg.Tracker.AngularSpeed)
	}
	if cfg.Tracker.HistoryLimit != 256 {
		t.Errorf("Expected history limit 256, got %d", cfg.Tracker.HistoryLimit)
	}
	if cfg.Tracker.ValidateMoveAck {
		t.Error("Expected Move acknowledgement validation disabled by default")
	}
	if cfg.Tracker.ValidationWords != [2]uint32{69, 420} {
		t.Errorf("Expected validation words 69/420, got %v", cfg.Tracker.ValidationWords)
	}

	// Driver defaults
	if cfg.Driver.RMSCurrentMA != 800 || cfg.Driver.GearRatio != 100 || cfg.Driver.Microsteps != 16 {
		t.Errorf("Unexpected driver defaults %+v", cfg.Driver)
	}

	// Database defaults
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Port)
	}

	// Server defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Observer.TimeZone != "UTC" {
		t.Errorf("Expected UTC timezone, got %s", cfg.Observer.TimeZone)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Error("Did not get default config for non-existent file")
	}
}

// TestLoadPartialConfig tests that missing sections keep their defaults.
func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	data := `{
		"serial": {"port": "/dev/ttyACM0", "baud_rate": 9600},
		"observer": {"name": "Vienna", "latitude": 48.2074, "longitude": 16.3713, "timezone": "Europe/Vienna"}
	}`
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyACM0" || cfg.Serial.BaudRate != 9600 {
		t.Errorf("Expected serial settings from file, got %+v", cfg.Serial)
	}
	if cfg.Serial.HandshakeTimeoutMS != 750 {
		t.Errorf("Expected default handshake timeout, got %d", cfg.Serial.HandshakeTimeoutMS)
	}
	if cfg.Tracker.HistoryLimit != 256 {
		t.Errorf("Expected default history limit, got %d", cfg.Tracker.HistoryLimit)
	}
	if cfg.Observer.Name != "Vienna" {
		t.Errorf("Expected observer Vienna, got %s", cfg.Observer.Name)
	}
}

// TestLoadInvalidJSON tests error handling for invalid JSON.
func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	if err := os.WriteFile(configPath, []byte("{ invalid json }"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got: %v", err)
	}
}

// TestSaveConfig tests saving configuration to file.
func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dir", "saved-config.json")

	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Tracker.ValidateMoveAck = true
	cfg.Catalog.NGCPath = "/data/ngc2000.dat"
	cfg.Limits.MinAltitude = 15

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Serial.Port != "/dev/ttyUSB1" {
		t.Errorf("Expected port /dev/ttyUSB1, got %s", loaded.Serial.Port)
	}
	if !loaded.Tracker.ValidateMoveAck {
		t.Error("Expected validation setting preserved")
	}
	if loaded.Catalog.NGCPath != "/data/ngc2000.dat" {
		t.Errorf("Expected NGC path preserved, got %s", loaded.Catalog.NGCPath)
	}
	if loaded.Limits.MinAltitude != 15 {
		t.Errorf("Expected min altitude 15, got %f", loaded.Limits.MinAltitude)
	}
}

// TestEnvironmentOverrides tests environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SKYTRACK_SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("SKYTRACK_BAUD_RATE", "57600")
	t.Setenv("SKYTRACK_PORT", "7777")
	t.Setenv("SKYTRACK_JWT_SECRET", "env-secret")
	t.Setenv("SKYTRACK_DB_PASSWORD", "env-password")
	t.Setenv("SKYTRACK_LATITUDE", "-33.87")
	t.Setenv("SKYTRACK_LONGITUDE", "not-a-number")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	fileCfg := DefaultConfig()
	fileCfg.Database.Password = "original-password"
	fileCfg.Observer.Longitude = 151.21
	if err := fileCfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyACM3" {
		t.Errorf("Expected serial port from env, got %s", cfg.Serial.Port)
	}
	if cfg.Serial.BaudRate != 57600 {
		t.Errorf("Expected baud rate from env, got %d", cfg.Serial.BaudRate)
	}
	if cfg.Server.Port != "7777" {
		t.Errorf("Expected port 7777 from env, got %s", cfg.Server.Port)
	}
	if cfg.Database.Password != "env-password" {
		t.Errorf("Expected env-password from env, got %s", cfg.Database.Password)
	}
	if cfg.Observer.Latitude != -33.87 {
		t.Errorf("Expected latitude from env, got %f", cfg.Observer.Latitude)
	}
	if cfg.Observer.Longitude != 151.21 {
		t.Errorf("Expected unparsable env longitude to be ignored, got %f", cfg.Observer.Longitude)
	}

	secret, err := cfg.Server.Secret()
	if err != nil || string(secret) != "env-secret" {
		t.Errorf("Expected JWT secret from env, got %q (%v)", secret, err)
	}
}

// TestValidate tests rejection of unusable settings.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"Zero baud rate", func(c *Config) { c.Serial.BaudRate = 0 }, "serial.baud_rate"},
		{"Zero handshake timeout", func(c *Config) { c.Serial.HandshakeTimeoutMS = 0 }, "serial.handshake_timeout_ms"},
		{"Empty history", func(c *Config) { c.Tracker.HistoryLimit = 0 }, "tracker.history_limit"},
		{"Zero speed", func(c *Config) { c.Tracker.AngularSpeed = 0 }, "tracker.angular_speed"},
		{"Negative frame rate", func(c *Config) { c.Tracker.FrameRateHz = -1 }, "tracker.frame_rate_hz"},
		{"Latitude beyond pole", func(c *Config) { c.Observer.Latitude = 91 }, "observer.latitude"},
		{"Longitude out of range", func(c *Config) { c.Observer.Longitude = -181 }, "observer.longitude"},
		{"Inverted limits", func(c *Config) { c.Limits.MinAltitude = 60; c.Limits.MaxAltitude = 30 }, "limits.min_altitude"},
		{"Unknown time zone", func(c *Config) { c.Observer.TimeZone = "Mars/Olympus_Mons" }, "observer.timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error naming %s, got: %v", tt.field, err)
			}
		})
	}
}

// TestTrackingConfig tests conversion into the tracker's settings.
func TestTrackingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Serial.HandshakeTimeoutMS = 500
	cfg.Driver.HomeAltitude = 10
	cfg.Observer.Latitude = 48.2074
	cfg.Observer.Longitude = 16.3713
	cfg.Limits.MinAltitude = 15

	tc := cfg.TrackingConfig()

	if tc.HandshakeTimeout != 500*time.Millisecond {
		t.Errorf("Expected 500ms handshake timeout, got %v", tc.HandshakeTimeout)
	}
	if tc.PollInterval != time.Millisecond {
		t.Errorf("Expected 1ms poll interval, got %v", tc.PollInterval)
	}
	if tc.Driver.RMSCurrent != 800 || tc.Driver.HomeAltitude != 10 || tc.Driver.HomeAzimuth != 180 {
		t.Errorf("Unexpected driver settings %+v", tc.Driver)
	}
	if tc.Observer.Latitude != 48.2074 || tc.Observer.Longitude != 16.3713 {
		t.Errorf("Unexpected observer %+v", tc.Observer)
	}
	if tc.Limits.MinAltitude != 15 || tc.Limits.MaxAltitude != 90 {
		t.Errorf("Unexpected limits %+v", tc.Limits)
	}
	if cfg.Tracker.DefaultDuration() != 10*time.Minute {
		t.Errorf("Expected 10m default duration, got %v", cfg.Tracker.DefaultDuration())
	}
}

// TestLocation tests time zone resolution.
func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Observer.TimeZone = ""
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Expected UTC for empty zone, got %v (%v)", loc, err)
	}

	if _, err := DefaultConfig().Server.Secret(); err != ErrNoSecret {
		t.Errorf("Expected ErrNoSecret, got %v", err)
	}
}
