package locator

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
)

// --- mock provider ---

// mockProvider delivers events synchronously on the caller's goroutine.
type mockProvider struct {
	mu sync.Mutex

	enabled bool
	status  domain.AuthorizationState
	events  domain.ProviderEvents

	accuracy     domain.Accuracy
	startCalls   int
	stopCalls    int
	authRequests []domain.AuthorizationKind
}

func newMockProvider(enabled bool, status domain.AuthorizationState) *mockProvider {
	return &mockProvider{enabled: enabled, status: status}
}

func (p *mockProvider) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *mockProvider) AuthorizationStatus() domain.AuthorizationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *mockProvider) RequestAuthorization(kind domain.AuthorizationKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authRequests = append(p.authRequests, kind)
}

func (p *mockProvider) SetDesiredAccuracy(accuracy domain.Accuracy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accuracy = accuracy
}

func (p *mockProvider) StartUpdates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
}

func (p *mockProvider) StopUpdates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls++
}

func (p *mockProvider) SetEvents(events domain.ProviderEvents) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
}

func (p *mockProvider) setState(enabled bool, status domain.AuthorizationState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
	p.status = status
}

func (p *mockProvider) deliverFixes(fixes ...domain.PositionFix) {
	p.mu.Lock()
	ev := p.events
	p.mu.Unlock()
	ev.OnFixes(fixes)
}

func (p *mockProvider) deliverFailure(err error) {
	p.mu.Lock()
	ev := p.events
	p.mu.Unlock()
	ev.OnFailure(err)
}

func (p *mockProvider) deliverStatus(status domain.AuthorizationState) {
	p.mu.Lock()
	p.status = status
	ev := p.events
	p.mu.Unlock()
	ev.OnStatusChanged(status)
}

func (p *mockProvider) counts() (start, stop int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startCalls, p.stopCalls
}

// --- mock geocoder ---

type mockGeocoder struct {
	mu sync.Mutex

	places   []domain.PlaceDescription
	err      error
	block    bool // wait for ctx cancellation
	reverse  []domain.PositionFix
	forward  []string
	onLookup func()
}

func (g *mockGeocoder) ReverseGeocode(ctx context.Context, fix domain.PositionFix) ([]domain.PlaceDescription, error) {
	g.mu.Lock()
	g.reverse = append(g.reverse, fix)
	hook := g.onLookup
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return g.answer(ctx)
}

func (g *mockGeocoder) Geocode(ctx context.Context, address string) ([]domain.PlaceDescription, error) {
	g.mu.Lock()
	g.forward = append(g.forward, address)
	hook := g.onLookup
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return g.answer(ctx)
}

func (g *mockGeocoder) answer(ctx context.Context) ([]domain.PlaceDescription, error) {
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.places, g.err
}

func (g *mockGeocoder) reverseFixes() []domain.PositionFix {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.PositionFix(nil), g.reverse...)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixAt(lat, lon float64) domain.PositionFix {
	return domain.PositionFix{Coordinate: domain.Coordinate{Lat: lat, Lon: lon}}
}

// recorder collects finish and failure callbacks.
type recorder struct {
	mu       sync.Mutex
	cities   []domain.ResolvedCity
	failures []*domain.Failure
}

func (r *recorder) attach(l *Locator) {
	l.OnFinished(func(city domain.ResolvedCity) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.cities = append(r.cities, city)
	})
	l.OnFailed(func(f *domain.Failure) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.failures = append(r.failures, f)
	})
}

func (r *recorder) snapshot() ([]domain.ResolvedCity, []*domain.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ResolvedCity(nil), r.cities...), append([]*domain.Failure(nil), r.failures...)
}

func newTestLocator(p *mockProvider, g *mockGeocoder) (*Locator, *recorder) {
	l := New(p, NewResolver(g, 0, discardLogger()), discardLogger(), observability.NewMetricsForTesting())
	rec := &recorder{}
	rec.attach(l)
	return l, rec
}
