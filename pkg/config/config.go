package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/unklstewy/skytrack/pkg/coordinates"
	"github.com/unklstewy/skytrack/pkg/tracking"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON file and environment overrides.
type Config struct {
	Serial   SerialConfig   `json:"serial"`
	Tracker  TrackerConfig  `json:"tracker"`
	Driver   DriverConfig   `json:"driver"`
	Limits   LimitsConfig   `json:"limits"`
	Observer ObserverConfig `json:"observer"`
	Catalog  CatalogConfig  `json:"catalog"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
}

// SerialConfig contains the mount controller link settings.
type SerialConfig struct {
	// Port is the serial device (e.g., "/dev/ttyACM0", "COM3") or "simulator"
	Port string `json:"port"`

	// BaudRate of the controller link (default: 115200)
	BaudRate int `json:"baud_rate"`

	// HandshakeTimeoutMS bounds the wait for the handshake reply
	HandshakeTimeoutMS int `json:"handshake_timeout_ms"`

	// PollIntervalMS is the sleep between checks for reply bytes
	PollIntervalMS int `json:"poll_interval_ms"`
}

// TrackerConfig contains the tracking loop settings.
type TrackerConfig struct {
	// AngularSpeed is the slew speed in degrees per second
	AngularSpeed float64 `json:"angular_speed"`

	// HistoryLimit is the number of exchanged frames kept in memory
	HistoryLimit int `json:"history_limit"`

	// FrameRateHz caps Move/Advance frames per second. 0 = uncapped
	FrameRateHz float64 `json:"frame_rate_hz"`

	// DefaultDurationSeconds is used when a tracking request omits a duration
	DefaultDurationSeconds int `json:"default_duration_seconds"`

	// ValidateMoveAck requires the validation words on Move acknowledgements
	// Only firmware built with validation sends them
	ValidateMoveAck bool `json:"validate_move_ack"`

	// ValidationWords are the two integers the firmware appends
	ValidationWords [2]uint32 `json:"validation_words"`
}

// DriverConfig is the stepper driver setup sent with a Configure frame.
type DriverConfig struct {
	// RMSCurrentMA is the motor RMS current in milliamperes
	RMSCurrentMA float64 `json:"rms_current_ma"`

	// GearRatio between motor and axis
	GearRatio float64 `json:"gear_ratio"`

	// Microsteps per full step
	Microsteps float64 `json:"microsteps"`

	// HomeAltitude and HomeAzimuth are the position the mount assumes after
	// configuration, in degrees
	HomeAltitude float64 `json:"home_altitude"`
	HomeAzimuth  float64 `json:"home_azimuth"`
}

// LimitsConfig contains the altitude window the mount may point into.
type LimitsConfig struct {
	MinAltitude float64 `json:"min_altitude"`
	MaxAltitude float64 `json:"max_altitude"`
}

// ObserverConfig contains the observer's geographic location.
// This is critical for accurate coordinate transformations and telescope control.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer location
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180), positive east
	Longitude float64 `json:"longitude"`

	// TimeZone is the IANA timezone name (e.g., "Europe/Vienna")
	TimeZone string `json:"timezone"`
}

// CatalogConfig points at the catalog source files. Empty paths fall back
// to built-in data (planets) or an empty catalog (objects).
type CatalogConfig struct {
	NGCPath     string `json:"ngc_path"`
	NamesPath   string `json:"names_path"`
	PlanetsPath string `json:"planets_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (postgres)
	Driver string `json:"driver"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// JWTSecret signs login tokens (should be loaded from environment)
	JWTSecret string `json:"jwt_secret"`

	// TokenHours is the lifetime of a login token
	TokenHours int `json:"token_hours"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:               "simulator",
			BaudRate:           115200,
			HandshakeTimeoutMS: 750,
			PollIntervalMS:     1,
		},
		Tracker: TrackerConfig{
			AngularSpeed:           2.0,
			HistoryLimit:           256,
			FrameRateHz:            10,
			DefaultDurationSeconds: 600,
			ValidateMoveAck:        false,
			ValidationWords:        [2]uint32{69, 420},
		},
		Driver: DriverConfig{
			RMSCurrentMA: 800,
			GearRatio:    100,
			Microsteps:   16,
			HomeAltitude: 0,
			HomeAzimuth:  180, // parked facing south
		},
		Limits: LimitsConfig{
			MinAltitude: 0,
			MaxAltitude: 90,
		},
		Observer: ObserverConfig{
			Name:      "Primary Observer",
			Latitude:  0.0,
			Longitude: 0.0,
			TimeZone:  "UTC",
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "skytrack",
			Username:     "skytrack",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       "8080",
			TokenHours: 24,
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Serial.BaudRate <= 0:
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	case c.Serial.HandshakeTimeoutMS <= 0:
		return fmt.Errorf("serial.handshake_timeout_ms must be positive, got %d", c.Serial.HandshakeTimeoutMS)
	case c.Tracker.HistoryLimit <= 0:
		return fmt.Errorf("tracker.history_limit must be positive, got %d", c.Tracker.HistoryLimit)
	case c.Tracker.AngularSpeed <= 0:
		return fmt.Errorf("tracker.angular_speed must be positive, got %g", c.Tracker.AngularSpeed)
	case c.Tracker.FrameRateHz < 0:
		return fmt.Errorf("tracker.frame_rate_hz must not be negative, got %g", c.Tracker.FrameRateHz)
	case c.Observer.Latitude < -90 || c.Observer.Latitude > 90:
		return fmt.Errorf("observer.latitude must be within ±90, got %g", c.Observer.Latitude)
	case c.Observer.Longitude < -180 || c.Observer.Longitude > 180:
		return fmt.Errorf("observer.longitude must be within ±180, got %g", c.Observer.Longitude)
	case c.Limits.MinAltitude >= c.Limits.MaxAltitude:
		return fmt.Errorf("limits.min_altitude (%g) must be below limits.max_altitude (%g)",
			c.Limits.MinAltitude, c.Limits.MaxAltitude)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the observer's time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Observer.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Observer.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid observer.timezone %q: %w", c.Observer.TimeZone, err)
	}
	return loc, nil
}

// Geographic returns the observer position for coordinate transforms.
func (c *ObserverConfig) Geographic() coordinates.Geographic {
	return coordinates.Geographic{Latitude: c.Latitude, Longitude: c.Longitude}
}

// DefaultDuration returns the tracking duration used when a request does
// not name one.
func (c *TrackerConfig) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationSeconds) * time.Second
}

// TrackingConfig converts the file settings into the tracker's settings.
func (c *Config) TrackingConfig() tracking.Config {
	return tracking.Config{
		HandshakeTimeout: time.Duration(c.Serial.HandshakeTimeoutMS) * time.Millisecond,
		PollInterval:     time.Duration(c.Serial.PollIntervalMS) * time.Millisecond,
		AngularSpeed:     c.Tracker.AngularSpeed,
		HistoryLimit:     c.Tracker.HistoryLimit,
		FrameRate:        c.Tracker.FrameRateHz,
		ValidateMoveAck:  c.Tracker.ValidateMoveAck,
		ValidationWords:  c.Tracker.ValidationWords,
		Driver: tracking.DriverConfig{
			RMSCurrent:   c.Driver.RMSCurrentMA,
			GearRatio:    c.Driver.GearRatio,
			Microsteps:   c.Driver.Microsteps,
			HomeAltitude: c.Driver.HomeAltitude,
			HomeAzimuth:  c.Driver.HomeAzimuth,
		},
		Observer: c.Observer.Geographic(),
		Limits: tracking.Limits{
			MinAltitude: c.Limits.MinAltitude,
			MaxAltitude: c.Limits.MaxAltitude,
		},
	}
}

// ErrNoSecret is returned by Secret when no signing secret is set.
var ErrNoSecret = errors.New("server.jwt_secret not set (use SKYTRACK_JWT_SECRET)")

// Secret returns the token signing secret.
func (c *ServerConfig) Secret() ([]byte, error) {
	if c.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	return []byte(c.JWTSecret), nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SKYTRACK_SERIAL_PORT"); port != "" {
		c.Serial.Port = port
	}
	if baud := os.Getenv("SKYTRACK_BAUD_RATE"); baud != "" {
		if n, err := strconv.Atoi(baud); err == nil {
			c.Serial.BaudRate = n
		}
	}
	if port := os.Getenv("SKYTRACK_PORT"); port != "" {
		c.Server.Port = port
	}
	if secret := os.Getenv("SKYTRACK_JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}
	if dbPassword := os.Getenv("SKYTRACK_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if lat := os.Getenv("SKYTRACK_LATITUDE"); lat != "" {
		if v, err := strconv.ParseFloat(lat, 64); err == nil {
			c.Observer.Latitude = v
		}
	}
	if lon := os.Getenv("SKYTRACK_LONGITUDE"); lon != "" {
		if v, err := strconv.ParseFloat(lon, 64); err == nil {
			c.Observer.Longitude = v
		}
	}
}
