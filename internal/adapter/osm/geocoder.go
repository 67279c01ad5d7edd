// Package osm adapts OpenStreetMap Nominatim, through geo-golang, to
// domain.Geocoder. It needs no credentials and is the default backend.
package osm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
)

// Geocoder implements domain.Geocoder on top of a geo.Geocoder. Nominatim
// yields at most one candidate per lookup.
type Geocoder struct {
	geocoder geo.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewGeocoder creates a Nominatim geocoder. An empty baseURL uses the public
// nominatim.openstreetmap.org instance.
func NewGeocoder(baseURL string, metrics *observability.Metrics, logger *slog.Logger) *Geocoder {
	g := openstreetmap.Geocoder()
	if baseURL != "" {
		g = openstreetmap.GeocoderWithURL(baseURL)
	}
	return newGeocoder(g, metrics, logger)
}

func newGeocoder(g geo.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *Geocoder {
	return &Geocoder{geocoder: g, metrics: metrics, logger: logger}
}

// ReverseGeocode converts a fix to at most one candidate place.
func (g *Geocoder) ReverseGeocode(ctx context.Context, fix domain.PositionFix) ([]domain.PlaceDescription, error) {
	start := time.Now()
	addr, err := await(ctx, func() (*geo.Address, error) {
		return g.geocoder.ReverseGeocode(fix.Coordinate.Lat, fix.Coordinate.Lon)
	})
	g.metrics.GeocodeAPIDuration.WithLabelValues("reverse").Observe(time.Since(start).Seconds())

	if err != nil {
		g.metrics.GeocodeRequests.WithLabelValues("reverse", "error").Inc()
		return nil, fmt.Errorf("nominatim reverse geocode: %w", err)
	}
	if addr == nil {
		g.metrics.GeocodeRequests.WithLabelValues("reverse", "empty").Inc()
		g.logger.Debug("nominatim returned no address", "coordinate", fix.Coordinate.String())
		return nil, nil
	}

	g.metrics.GeocodeRequests.WithLabelValues("reverse", "success").Inc()
	return []domain.PlaceDescription{placeFromAddress(addr, fix.Coordinate)}, nil
}

// Geocode resolves an address to coordinates, then reverse geocodes those
// coordinates to fill in the administrative fields.
func (g *Geocoder) Geocode(ctx context.Context, address string) ([]domain.PlaceDescription, error) {
	start := time.Now()
	loc, err := await(ctx, func() (*geo.Location, error) {
		return g.geocoder.Geocode(address)
	})
	g.metrics.GeocodeAPIDuration.WithLabelValues("forward").Observe(time.Since(start).Seconds())

	if err != nil {
		g.metrics.GeocodeRequests.WithLabelValues("forward", "error").Inc()
		return nil, fmt.Errorf("nominatim geocode: %w", err)
	}
	if loc == nil {
		g.metrics.GeocodeRequests.WithLabelValues("forward", "empty").Inc()
		return nil, nil
	}
	g.metrics.GeocodeRequests.WithLabelValues("forward", "success").Inc()

	return g.ReverseGeocode(ctx, domain.PositionFix{
		Coordinate: domain.Coordinate{Lat: loc.Lat, Lon: loc.Lng},
	})
}

func placeFromAddress(addr *geo.Address, at domain.Coordinate) domain.PlaceDescription {
	return domain.PlaceDescription{
		Locality:           addr.City,
		AdministrativeArea: addr.State,
		Country:            addr.Country,
		FormattedAddress:   addr.FormattedAddress,
		Coordinate:         at,
		Raw:                *addr,
	}
}

// await runs a blocking geo-golang call and returns early when ctx is done.
// geo-golang applies its own HTTP timeout to the abandoned call.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
