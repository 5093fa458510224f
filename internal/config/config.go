// Package config loads the bulk-pull job's settings from the environment.
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

	"github.com/prairieclim/climate-data-acquisition/internal/geomet"
)

var validate = validator.New()

// AppConfig holds everything the climate-pull job needs.
type AppConfig struct {
	// BaseURL of the collections service.
	BaseURL string `validate:"required,url"`

	// OutputDir receives the per-station CSV files. It must exist.
	OutputDir string `validate:"required"`

	// Provinces to pull, one flushing acquisition each.
	Provinces []geomet.ProvinceCode `validate:"min=1"`

	// Properties requested for each record. Must include the naming
	// properties for flushing acquisitions.
	Properties []string `validate:"min=1"`

	// DateInterval is a pre-formatted datetime expression, empty for no
	// date constraint.
	DateInterval string

	// PageLimit is the page size for item requests.
	PageLimit int `validate:"gt=0"`

	// HTTPTimeout bounds each page/probe request.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// RetryBackoff is the fixed sleep between retries of a failed page.
	// Bulk jobs use long backoffs so a struggling remote gets room to
	// recover.
	RetryBackoff time.Duration `validate:"gt=0"`

	// MaxRetries bounds retries per page; 0 retries forever.
	MaxRetries int `validate:"gte=0"`

	// PullInterval re-runs the job on a schedule when positive; zero
	// means run once and exit.
	PullInterval time.Duration

	// GeocoderAPIKey enables address-based station lookup when set.
	GeocoderAPIKey string
}

// defaultProperties are the columns pulled when none are configured, the
// core daily observation set plus the properties that name output files.
var defaultProperties = []string{
	geomet.StationNameProperty,
	geomet.GroupIDProperty,
	geomet.DateProperty,
	"MEAN_TEMPERATURE",
	"MIN_TEMPERATURE",
	"MAX_TEMPERATURE",
	"TOTAL_PRECIPITATION",
	"TOTAL_SNOW",
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		BaseURL:        getenvDefault("CLIMATE_BASE_URL", geomet.DefaultBaseURL),
		OutputDir:      getenvDefault("CLIMATE_OUTPUT_DIR", "."),
		DateInterval:   os.Getenv("CLIMATE_DATE_INTERVAL"),
		PageLimit:      getenvInt("CLIMATE_PAGE_LIMIT", 10000),
		MaxRetries:     getenvInt("CLIMATE_MAX_RETRIES", 0),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("CLIMATE_HTTP_TIMEOUT", "100s"); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getenvDuration("CLIMATE_RETRY_BACKOFF", "1m"); err != nil {
		return nil, err
	}
	if cfg.PullInterval, err = getenvDuration("CLIMATE_PULL_INTERVAL", "0s"); err != nil {
		return nil, err
	}

	for _, code := range splitList(getenvDefault("CLIMATE_PROVINCES", "AB")) {
		province := geomet.ProvinceCode(strings.ToUpper(code))
		if !province.Valid() {
			return nil, fmt.Errorf("unknown province code %q", code)
		}
		cfg.Provinces = append(cfg.Provinces, province)
	}

	if props := splitList(os.Getenv("CLIMATE_PROPERTIES")); len(props) > 0 {
		cfg.Properties = props
	} else {
		cfg.Properties = defaultProperties
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
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
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
