package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoder backends.
const (
	GeocoderMapbox = "mapbox"
	GeocoderGoogle = "google"
	GeocoderOSM    = "osm"
)

// Device provider backends.
const (
	ProviderStatic      = "static"
	ProviderGeolocation = "geolocation"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DesiredAccuracy domain.Accuracy
	GeocodeTimeout  time.Duration // 0 disables the per-lookup deadline
	LocateTimeout   time.Duration // bounds one blocking locate call

	// Geocoding backend selection.
	Geocoder         string
	MapboxToken      string
	MapboxTimeout    time.Duration
	GoogleMapsAPIKey string
	OSMBaseURL       string

	// Device provider.
	Provider              string
	ProviderEnabled       bool
	ProviderAuthorization domain.AuthorizationState
	ProviderGrant         domain.AuthorizationState
	FixesFile             string

	// Optional resolved-city sink.
	KafkaBrokers []string
	KafkaTopic   string

	// AMap deep links.
	AMapSourceApplication string
	AMapScanCodePoints    bool
	AMapAlwaysEncode      bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	geocodeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_TIMEOUT", "0s"))
	if err != nil || geocodeTimeout < 0 {
		return nil, errors.New("invalid GEOCODE_TIMEOUT")
	}

	locateTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("LOCATE_TIMEOUT", "8s"))
	if err != nil || locateTimeout <= 0 {
		return nil, errors.New("invalid LOCATE_TIMEOUT")
	}

	accuracy, err := parseAccuracy()
	if err != nil {
		return nil, err
	}

	initial, err := domain.ParseAuthorizationState(sharedcfg.EnvOrDefault("PROVIDER_AUTHORIZATION", domain.NotDetermined.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_AUTHORIZATION: %w", err)
	}
	grant, err := domain.ParseAuthorizationState(sharedcfg.EnvOrDefault("PROVIDER_GRANT", domain.AuthorizedWhenInUse.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_GRANT: %w", err)
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DesiredAccuracy: accuracy,
		GeocodeTimeout:  geocodeTimeout,
		LocateTimeout:   locateTimeout,

		Geocoder:         sharedcfg.EnvOrDefault("GEOCODER", GeocoderOSM),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:    mapboxTimeout,
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		OSMBaseURL:       os.Getenv("OSM_BASE_URL"),

		Provider:              sharedcfg.EnvOrDefault("PROVIDER", ProviderStatic),
		ProviderEnabled:       parseBool("PROVIDER_ENABLED", true),
		ProviderAuthorization: initial,
		ProviderGrant:         grant,
		FixesFile:             os.Getenv("FIXES_FILE"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "resolved-cities"),

		AMapSourceApplication: sharedcfg.EnvOrDefault("AMAP_SOURCE_APPLICATION", "applicationName"),
		AMapScanCodePoints:    parseBool("AMAP_SCAN_CODE_POINTS", false),
		AMapAlwaysEncode:      parseBool("AMAP_ALWAYS_ENCODE", false),
	}

	switch cfg.Geocoder {
	case GeocoderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER is mapbox but MAPBOX_TOKEN is not set")
		}
	case GeocoderGoogle:
		if cfg.GoogleMapsAPIKey == "" {
			return nil, errors.New("GEOCODER is google but GOOGLE_MAPS_API_KEY is not set")
		}
	case GeocoderOSM:
	default:
		return nil, fmt.Errorf("unknown GEOCODER %q", cfg.Geocoder)
	}

	switch cfg.Provider {
	case ProviderStatic:
	case ProviderGeolocation:
		if cfg.GoogleMapsAPIKey == "" {
			return nil, errors.New("PROVIDER is geolocation but GOOGLE_MAPS_API_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("unknown PROVIDER %q", cfg.Provider)
	}

	if !cfg.ProviderGrant.Authorized() {
		return nil, errors.New("PROVIDER_GRANT must be an authorized state")
	}

	return cfg, nil
}

// KafkaEnabled reports whether resolved cities are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseAccuracy() (domain.Accuracy, error) {
	s := os.Getenv("DESIRED_ACCURACY")
	if s == "" {
		return domain.DefaultAccuracy, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || (v <= 0 && v != float64(domain.AccuracyBest)) {
		return 0, errors.New("invalid DESIRED_ACCURACY")
	}
	return domain.Accuracy(v), nil
}

func parseBool(key string, def bool) bool {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			return v
		}
	}
	return def
}
