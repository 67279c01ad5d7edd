package locator

import (
	"context"

	"github.com/couchcryptid/city-locator/internal/domain"
)

// GeocodeAddress registers handler as the geocode-only handler and starts a
// forward lookup of address. The outcome goes to whichever geocode-only
// handler is registered when the lookup completes.
func (l *Locator) GeocodeAddress(address string, handler GeocodeHandler) {
	l.mu.Lock()
	l.geocodeHandler = handler
	l.mu.Unlock()

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		city, err := l.lookupAddress(context.Background(), address)
		l.deliverGeocode(city, err)
	}()
}

// lookupAddress runs one forward lookup. err is a *domain.Failure when
// non-nil.
func (l *Locator) lookupAddress(ctx context.Context, address string) (domain.ResolvedCity, error) {
	city, err := l.resolver.ResolveAddress(ctx, address)
	if err != nil {
		f := asFailure(err, domain.GeocodeTransportError)
		l.metrics.Resolutions.WithLabelValues(f.Kind.String()).Inc()
		return domain.ResolvedCity{}, f
	}
	l.metrics.Resolutions.WithLabelValues("success").Inc()
	return city, nil
}

func (l *Locator) deliverGeocode(city domain.ResolvedCity, err error) {
	l.mu.Lock()
	handler := l.geocodeHandler
	l.mu.Unlock()

	if handler == nil {
		l.logger.Debug("forward lookup finished with no geocode handler", "city", city.CityName, "error", err)
		return
	}
	handler(city, err)
}
