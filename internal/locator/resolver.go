package locator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
)

// Resolver turns a fix (or an address) into a city via a Geocoder.
type Resolver struct {
	geocoder domain.Geocoder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver creates a Resolver. A zero timeout leaves lookups bounded only
// by ctx.
func NewResolver(geocoder domain.Geocoder, timeout time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve reverse-geocodes fix and applies the city rule to the first
// candidate. Errors are always *domain.Failure.
func (r *Resolver) Resolve(ctx context.Context, fix domain.PositionFix) (domain.ResolvedCity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	places, err := r.geocoder.ReverseGeocode(ctx, fix)
	if err != nil {
		r.logger.Warn("reverse geocoding failed",
			"lat", fix.Coordinate.Lat,
			"lon", fix.Coordinate.Lon,
			"error", err,
		)
		return domain.ResolvedCity{}, domain.WrapFailure(domain.GeocodeTransportError, err)
	}

	city, err := domain.ResolvePlaces(fix, places)
	if err != nil {
		r.logger.Warn("no city for fix",
			"lat", fix.Coordinate.Lat,
			"lon", fix.Coordinate.Lon,
			"candidates", len(places),
			"kind", domain.KindOf(err),
		)
		return domain.ResolvedCity{}, err
	}

	r.logger.Info("city resolved", "city", city.CityName, "lat", fix.Coordinate.Lat, "lon", fix.Coordinate.Lon)
	return city, nil
}

// ResolveAddress forward-geocodes address. The first candidate's coordinate
// becomes the fix of the returned city.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (domain.ResolvedCity, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.ResolvedCity{}, domain.NewFailure(domain.GeocodeEmptyResult, domain.MsgAddressUnavailable)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	places, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		r.logger.Warn("forward geocoding failed", "address", address, "error", err)
		return domain.ResolvedCity{}, domain.WrapFailure(domain.GeocodeTransportError, err)
	}

	var fix domain.PositionFix
	if len(places) > 0 {
		fix = domain.PositionFix{
			Coordinate: places[0].Coordinate,
			Timestamp:  domain.Clock().Now().UTC(),
		}
	}
	return domain.ResolvePlaces(fix, places)
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
