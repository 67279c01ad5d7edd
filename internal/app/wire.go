// Package app builds the locator's collaborators from configuration. It is
// shared by the CLI and the daemon.
package app

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/city-locator/internal/adapter/device"
	"github.com/couchcryptid/city-locator/internal/adapter/google"
	"github.com/couchcryptid/city-locator/internal/adapter/mapbox"
	"github.com/couchcryptid/city-locator/internal/adapter/osm"
	"github.com/couchcryptid/city-locator/internal/amap"
	"github.com/couchcryptid/city-locator/internal/config"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/locator"
	"github.com/couchcryptid/city-locator/internal/observability"
	"googlemaps.github.io/maps"
)

// Provider is a device provider that owns a callback goroutine.
type Provider interface {
	domain.LocationProvider
	Close() error
}

// NewGeocoder returns the backend selected by cfg.Geocoder.
func NewGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, opts ...maps.ClientOption) (domain.Geocoder, error) {
	switch cfg.Geocoder {
	case config.GeocoderMapbox:
		logger.Info("geocoding with mapbox", "timeout", cfg.MapboxTimeout)
		return mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger), nil
	case config.GeocoderGoogle:
		client, err := google.NewClient(cfg.GoogleMapsAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("geocoding with google")
		return google.NewGeocoder(client, metrics, logger), nil
	case config.GeocoderOSM:
		logger.Info("geocoding with openstreetmap", "base_url", cfg.OSMBaseURL)
		return osm.NewGeocoder(cfg.OSMBaseURL, metrics, logger), nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", cfg.Geocoder)
	}
}

// NewProvider returns the device provider selected by cfg.Provider.
func NewProvider(cfg *config.Config, logger *slog.Logger, opts ...maps.ClientOption) (Provider, error) {
	settings := device.Settings{
		Enabled:       cfg.ProviderEnabled,
		Authorization: cfg.ProviderAuthorization,
		Grant:         cfg.ProviderGrant,
	}

	switch cfg.Provider {
	case config.ProviderStatic:
		var replay device.Replay
		if cfg.FixesFile != "" {
			var err error
			if replay, err = device.LoadReplay(cfg.FixesFile); err != nil {
				return nil, err
			}
		}
		logger.Info("static provider", "file", cfg.FixesFile, "batches", len(replay.Batches))
		return device.NewStaticProvider(replay, settings, logger), nil
	case config.ProviderGeolocation:
		client, err := google.NewClient(cfg.GoogleMapsAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("network geolocation provider")
		return device.NewGeolocationProvider(client, settings, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewLocator wires a provider and geocoder into a facade configured with
// the desired accuracy.
func NewLocator(cfg *config.Config, provider domain.LocationProvider, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *locator.Locator {
	resolver := locator.NewResolver(geocoder, cfg.GeocodeTimeout, logger)
	l := locator.New(provider, resolver, logger, metrics)
	l.SetDesiredAccuracy(cfg.DesiredAccuracy)
	return l
}

// AMapOptions maps the deep-link settings.
func AMapOptions(cfg *config.Config) amap.Options {
	return amap.Options{
		SourceApplication: cfg.AMapSourceApplication,
		ScanCodePoints:    cfg.AMapScanCodePoints,
		AlwaysEncode:      cfg.AMapAlwaysEncode,
	}
}
