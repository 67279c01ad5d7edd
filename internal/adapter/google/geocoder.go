// Package google adapts the Google Maps web services to the locator's
// collaborator interfaces.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
	"googlemaps.github.io/maps"
)

// Geocoder implements domain.Geocoder using the Google Geocoding API.
type Geocoder struct {
	client  *maps.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient builds a Maps API client. Extra options (for example
// maps.WithBaseURL in tests) are applied after the key.
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}
	return client, nil
}

// NewGeocoder wraps an existing Maps API client.
func NewGeocoder(client *maps.Client, metrics *observability.Metrics, logger *slog.Logger) *Geocoder {
	return &Geocoder{client: client, metrics: metrics, logger: logger}
}

// ReverseGeocode converts a fix to candidate places, most specific first.
func (g *Geocoder) ReverseGeocode(ctx context.Context, fix domain.PositionFix) ([]domain.PlaceDescription, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: fix.Coordinate.Lat, Lng: fix.Coordinate.Lon},
	}
	return g.observe("reverse", func() ([]maps.GeocodingResult, error) {
		return g.client.ReverseGeocode(ctx, req)
	})
}

// Geocode converts a free-form address to candidate places.
func (g *Geocoder) Geocode(ctx context.Context, address string) ([]domain.PlaceDescription, error) {
	req := &maps.GeocodingRequest{Address: address}
	return g.observe("forward", func() ([]maps.GeocodingResult, error) {
		return g.client.Geocode(ctx, req)
	})
}

func (g *Geocoder) observe(method string, call func() ([]maps.GeocodingResult, error)) ([]domain.PlaceDescription, error) {
	start := time.Now()
	results, err := call()
	g.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		g.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("google %s geocode: %w", method, err)
	}
	if len(results) == 0 {
		g.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
		g.logger.Debug("google returned no results", "method", method)
		return nil, nil
	}

	g.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	places := make([]domain.PlaceDescription, 0, len(results))
	for _, r := range results {
		places = append(places, placeFromResult(r))
	}
	return places, nil
}

// placeFromResult maps address component types: "locality" is the city and
// "administrative_area_level_1" the province or state.
func placeFromResult(r maps.GeocodingResult) domain.PlaceDescription {
	p := domain.PlaceDescription{
		FormattedAddress: r.FormattedAddress,
		Coordinate: domain.Coordinate{
			Lat: r.Geometry.Location.Lat,
			Lon: r.Geometry.Location.Lng,
		},
		Raw: r,
	}

	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				if p.Locality == "" {
					p.Locality = comp.LongName
				}
			case "administrative_area_level_1":
				if p.AdministrativeArea == "" {
					p.AdministrativeArea = comp.LongName
				}
			case "country":
				if p.Country == "" {
					p.Country = comp.LongName
				}
			}
		}
	}
	return p
}
