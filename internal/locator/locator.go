// Package locator implements the one-shot city lookup facade: it gates on
// location authorization, acquires a single fix from a LocationProvider and
// resolves that fix to a city through a Geocoder.
package locator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
)

// StatusHandler receives authorization changes reported by the provider.
type StatusHandler func(provider domain.LocationProvider, status domain.AuthorizationState)

// FinishHandler receives a successfully resolved city.
type FinishHandler func(city domain.ResolvedCity)

// FailHandler receives every failure. Either f.Err or f.Message is set.
type FailHandler func(f *domain.Failure)

// GeocodeHandler receives the outcome of a forward lookup started with
// GeocodeAddress. err is a *domain.Failure when non-nil.
type GeocodeHandler func(city domain.ResolvedCity, err error)

// cycleObserver receives the outcome of each acquisition cycle tagged with
// the cycle's id. err is a *domain.Failure when non-nil.
type cycleObserver func(cycle uint64, city domain.ResolvedCity, err error)

// Locator is the facade over one LocationProvider. It exclusively owns the
// provider's event callbacks. Each handler kind has a single slot; a new
// registration replaces the previous one.
type Locator struct {
	provider domain.LocationProvider
	resolver *Resolver
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	updating bool
	cycle    uint64
	accuracy domain.Accuracy
	mode     domain.LocationMode

	statusHandler  StatusHandler
	finishHandler  FinishHandler
	failHandler    FailHandler
	geocodeHandler GeocodeHandler
	cycleObserver  cycleObserver

	inflight sync.WaitGroup
}

// New creates a Locator bound to provider and installs itself as the
// provider's only event receiver. The desired accuracy starts at
// domain.DefaultAccuracy.
func New(provider domain.LocationProvider, resolver *Resolver, logger *slog.Logger, metrics *observability.Metrics) *Locator {
	l := &Locator{
		provider: provider,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		accuracy: domain.DefaultAccuracy,
		mode:     domain.ModeOnceCity,
	}
	provider.SetDesiredAccuracy(l.accuracy)
	provider.SetEvents(domain.ProviderEvents{
		OnStatusChanged: l.handleStatus,
		OnFixes:         l.handleFixes,
		OnFailure:       l.handleFailure,
	})
	return l
}

// observeCycles installs the cycle observer, replacing any previous one.
func (l *Locator) observeCycles(observer cycleObserver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycleObserver = observer
}

// OnFinished registers the handler for resolved cities.
func (l *Locator) OnFinished(handler FinishHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finishHandler = handler
}

// OnFailed registers the handler for failures.
func (l *Locator) OnFailed(handler FailHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failHandler = handler
}

// Mode returns the current location mode.
func (l *Locator) Mode() domain.LocationMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// SetMode changes the location mode. Only domain.ModeOnceCity is supported.
func (l *Locator) SetMode(mode domain.LocationMode) error {
	if mode != domain.ModeOnceCity {
		return fmt.Errorf("unsupported location mode %s", mode)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
	return nil
}

// Wait blocks until every in-flight resolution has delivered its callback.
func (l *Locator) Wait() {
	l.inflight.Wait()
}

// Provider returns the provider the locator is bound to.
func (l *Locator) Provider() domain.LocationProvider {
	return l.provider
}

func (l *Locator) finish(city domain.ResolvedCity) {
	l.metrics.Resolutions.WithLabelValues("success").Inc()

	l.mu.Lock()
	handler := l.finishHandler
	l.mu.Unlock()

	if handler == nil {
		l.logger.Debug("city resolved with no finish handler", "city", city.CityName)
		return
	}
	handler(city)
}

func (l *Locator) fail(f *domain.Failure) {
	l.mu.Lock()
	handler := l.failHandler
	l.mu.Unlock()

	if handler == nil {
		l.logger.Warn("locate failed with no failure handler", "kind", f.Kind, "error", f)
		return
	}
	handler(f)
}

// asFailure normalizes err into a *domain.Failure, classifying unknown
// errors with kind.
func asFailure(err error, kind domain.FailureKind) *domain.Failure {
	var f *domain.Failure
	if errors.As(err, &f) {
		return f
	}
	return domain.WrapFailure(kind, err)
}
