// Package config loads the airport-tracker configuration and the monitored
// airport registry. The application config lives in a JSON file with
// environment-variable overrides; the airport registry is a separate JSON
// document loaded once at startup and immutable afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Tracker  TrackerConfig  `json:"tracker"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 3003)
	Port int `json:"port" validate:"gt=0,lte=65535"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// DatabaseConfig contains the optional Postgres archive connection settings.
// The archive is disabled when Enabled is false; the tracker serves queries
// from memory either way.
type DatabaseConfig struct {
	// Enabled determines whether flight updates are archived to Postgres
	Enabled bool `json:"enabled"`

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

	// RetentionHours is how long archived updates are kept (default: 24)
	RetentionHours int `json:"retention_hours"`
}

// TrackerConfig contains flight-state tracking settings.
type TrackerConfig struct {
	// AirportsPath is the path to the airport registry JSON file
	AirportsPath string `json:"airports_path" validate:"required"`

	// StaleAfterSeconds is the staleness window for evicting tracked
	// flights that have not been seen recently. 0 disables eviction.
	StaleAfterSeconds int `json:"stale_after_seconds" validate:"gte=0"`

	// SweepIntervalSeconds is how often the eviction sweep runs (default: 30)
	SweepIntervalSeconds int `json:"sweep_interval_seconds" validate:"gte=0"`
}

// AirportConfig represents one monitored airport's geofence parameters.
type AirportConfig struct {
	// ICAO is the unique airport identifier (e.g., "KJFK")
	ICAO string `json:"icao" validate:"required"`

	// Name is the airport display name
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude" validate:"gte=-90,lte=90"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`

	// RadiusKm is the geofence radius in kilometers
	RadiusKm float64 `json:"radius_km" validate:"gt=0"`

	// ArrivalThresholdM is the altitude in meters below which an airborne
	// aircraft inside the geofence is classified as arriving
	ArrivalThresholdM float64 `json:"arrival_threshold_m" validate:"gt=0"`

	// DepartureThresholdM is the altitude in meters below which an airborne
	// aircraft inside the geofence is classified as departing (checked
	// after the arrival threshold)
	DepartureThresholdM float64 `json:"departure_threshold_m" validate:"gt=0"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3003,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Enabled:        false,
			Host:           "localhost",
			Port:           5432,
			Database:       "airporttracker",
			Username:       "airporttracker",
			SSLMode:        "disable",
			MaxOpenConns:   25,
			MaxIdleConns:   5,
			RetentionHours: 24,
		},
		Tracker: TrackerConfig{
			AirportsPath:         "configs/airports.json",
			StaleAfterSeconds:    300,
			SweepIntervalSeconds: 30,
		},
	}
}

// LoadAirports reads the airport registry from a JSON file and validates it.
// The registry is loaded once at startup; a missing, unreadable or malformed
// file is fatal to the caller.
func LoadAirports(path string) ([]AirportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read airport config %s: %w", path, err)
	}

	var airports []AirportConfig
	if err := json.Unmarshal(data, &airports); err != nil {
		return nil, fmt.Errorf("failed to parse airport config %s: %w", path, err)
	}

	v := validator.New()
	for i, a := range airports {
		if err := v.Struct(a); err != nil {
			return nil, fmt.Errorf("invalid airport entry %d (%s): %w", i, a.ICAO, err)
		}
		// With arrival checked first, a non-increasing threshold pair
		// makes the departing band unreachable below the arrival
		// threshold. Accepted, but worth flagging.
		if a.ArrivalThresholdM >= a.DepartureThresholdM {
			log.Printf("⚠️  Airport %s: arrival threshold (%.0f m) >= departure threshold (%.0f m); departing status unreachable below %.0f m",
				a.ICAO, a.ArrivalThresholdM, a.DepartureThresholdM, a.ArrivalThresholdM)
		}
	}

	log.Printf("✓ Loaded %d airports from %s", len(airports), path)
	return airports, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the
// config. This allows sensitive data like passwords to be kept out of config
// files.
func (c *Config) applyEnvironmentOverrides() {
	if airports := os.Getenv("AIRPORT_TRACKER_AIRPORTS"); airports != "" {
		c.Tracker.AirportsPath = airports
	}
	if dbPassword := os.Getenv("AIRPORT_TRACKER_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if host := os.Getenv("AIRPORT_TRACKER_DB_HOST"); host != "" {
		c.Database.Host = host
	}
}
