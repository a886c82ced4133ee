package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/raincoat/internal/outfit"
	"github.com/i474232898/raincoat/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	// Provider selects the weather source.
	Provider string `validate:"required,oneof=openweathermap weatherapi openmeteo"`

	// CountryCode is appended to ZIP lookups.
	CountryCode string `validate:"required,len=2,alpha"`

	HTTPTimeout     time.Duration `validate:"gt=0"`
	FetchMaxRetries int           `validate:"min=0,max=10"`

	// OutfitTablesFile optionally replaces the built-in range tables.
	OutfitTablesFile string

	Port string `validate:"required,numeric"`

	// WatchZips are refreshed every FetchInterval in serve mode.
	WatchZips     []string      `validate:"dive,number"`
	FetchInterval time.Duration `validate:"gt=0"`

	// In-memory store retention.
	StoreMaxHistory int           `validate:"min=0"` // max number of reports per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	// ReportMaxAge is how long a stored report is served before refetching (0 = always refetch).
	ReportMaxAge time.Duration
}

// Load reads configuration from environment with sensible defaults. Only
// malformed durations fail here; call Validate once command-line overrides
// have been applied.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	cfg.Provider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", "openweathermap"))
	cfg.CountryCode = strings.ToLower(getenvDefault("COUNTRY_CODE", "us"))

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	// Upstream failures are terminal unless retries are configured.
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)

	cfg.OutfitTablesFile = os.Getenv("OUTFIT_TABLES_FILE")
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.WatchZips = splitList(os.Getenv("WATCH_ZIPS"))
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.ReportMaxAge, err = getenvDuration("REPORT_MAX_AGE", "10m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Tables returns the outfit range tables: the file named by
// OUTFIT_TABLES_FILE when set, otherwise the built-in defaults.
func (c *AppConfig) Tables() (outfit.Tables, error) {
	if c.OutfitTablesFile == "" {
		return outfit.DefaultTables(), nil
	}
	tables, err := outfit.LoadTables(c.OutfitTablesFile)
	if err != nil {
		return nil, fmt.Errorf("OUTFIT_TABLES_FILE %s: %w", c.OutfitTablesFile, err)
	}
	return tables, nil
}

// WatchLocations returns the locations the scheduler keeps fresh.
func (c *AppConfig) WatchLocations() []weather.Location {
	var locs []weather.Location
	for _, zip := range c.WatchZips {
		locs = append(locs, weather.Location{Zip: zip, Country: c.CountryCode})
	}
	return locs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
