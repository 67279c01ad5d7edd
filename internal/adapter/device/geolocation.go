package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/city-locator/internal/domain"
	"googlemaps.github.io/maps"
)

// GeolocationProvider locates the host through the Google Geolocation API,
// falling back to IP geolocation. Each cycle makes one request.
type GeolocationProvider struct {
	*base
	client *maps.Client
}

// NewGeolocationProvider creates a network provider on an existing client.
func NewGeolocationProvider(client *maps.Client, settings Settings, logger *slog.Logger) *GeolocationProvider {
	p := &GeolocationProvider{client: client}
	p.base = newBase(settings, p.run, logger)
	return p
}

func (p *GeolocationProvider) run(ctx context.Context, emit func([]domain.PositionFix), fail func(error)) {
	resp, err := p.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fail(fmt.Errorf("geolocate: %w", err))
		return
	}

	p.logger.Debug("geolocated", "lat", resp.Location.Lat, "lon", resp.Location.Lng, "accuracy", resp.Accuracy)
	emit([]domain.PositionFix{{
		Coordinate: domain.Coordinate{Lat: resp.Location.Lat, Lon: resp.Location.Lng},
		Accuracy:   resp.Accuracy,
		Timestamp:  domain.Clock().Now(),
		Raw:        *resp,
	}})
}
