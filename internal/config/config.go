package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig is the fully resolved service configuration. Device identifiers
// are WeatherFlow device serial numbers; a station needs at least one
// outdoor device (TEMPEST, or a SKY/AIR pair).
type AppConfig struct {
	TempestID string `validate:"required_without_all=SkyID OutAirID"`
	SkyID     string
	OutAirID  string
	InAirID   string

	// Station elevation above sea level in metres, plus per-device mounting
	// heights above ground.
	Elevation     float64
	TempestHeight float64
	OutAirHeight  float64

	// Timezone is the station's IANA timezone name; all calendar boundaries
	// are evaluated in it.
	Timezone string `validate:"required"`

	// FeelsLikeCutoffs are the apparent-temperature band boundaries in
	// Celsius, ascending. Empty keeps the engine defaults.
	FeelsLikeCutoffs []float64

	// Historical observation REST service. An empty token disables backfill;
	// trends and cold-start reconciliation then stay unavailable.
	BackfillBaseURL string `validate:"omitempty,url"`
	BackfillToken   string
	BackfillTimeout time.Duration `validate:"min=1s"`

	// SQLite snapshot persistence.
	SnapshotPath     string
	SnapshotInterval time.Duration `validate:"min=10s"`

	Port string `validate:"required"`
}

// Load reads configuration from the environment, with .env support.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{
		TempestID: os.Getenv("STATION_TEMPEST_ID"),
		SkyID:     os.Getenv("STATION_SKY_ID"),
		OutAirID:  os.Getenv("STATION_OUT_AIR_ID"),
		InAirID:   os.Getenv("STATION_IN_AIR_ID"),

		Timezone: getenvDefault("STATION_TIMEZONE", "UTC"),

		BackfillBaseURL: getenvDefault("BACKFILL_BASE_URL", "https://swd.weatherflow.com/swd/rest"),
		BackfillToken:   os.Getenv("BACKFILL_TOKEN"),

		SnapshotPath: getenvDefault("SNAPSHOT_PATH", "stationcore.db"),

		Port: getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.Elevation, err = getenvFloat("STATION_ELEVATION", 0); err != nil {
		return nil, err
	}
	if cfg.TempestHeight, err = getenvFloat("STATION_TEMPEST_HEIGHT", 0); err != nil {
		return nil, err
	}
	if cfg.OutAirHeight, err = getenvFloat("STATION_OUT_AIR_HEIGHT", 0); err != nil {
		return nil, err
	}
	if cfg.FeelsLikeCutoffs, err = parseCutoffs(os.Getenv("FEELS_LIKE_CUTOFFS")); err != nil {
		return nil, err
	}
	if cfg.BackfillTimeout, err = getenvDuration("BACKFILL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SnapshotInterval, err = getenvDuration("SNAPSHOT_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid STATION_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Call after Load has validated it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseCutoffs parses a comma-separated ascending list of Celsius values.
func parseCutoffs(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FEELS_LIKE_CUTOFFS entry %q: %w", part, err)
		}
		if len(out) > 0 && v <= out[len(out)-1] {
			return nil, fmt.Errorf("FEELS_LIKE_CUTOFFS must be strictly ascending")
		}
		out = append(out, v)
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
