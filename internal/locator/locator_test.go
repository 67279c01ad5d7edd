package locator

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- start preconditions ---

func TestStart_ServiceDisabled(t *testing.T) {
	p := newMockProvider(false, domain.AuthorizedAlways)
	l, rec := newTestLocator(p, &mockGeocoder{})

	l.Start()

	start, _ := p.counts()
	assert.Equal(t, 0, start, "provider must not be started")
	_, failures := rec.snapshot()
	require.Len(t, failures, 1)
	assert.Equal(t, domain.ServiceDisabled, failures[0].Kind)
	assert.Equal(t, "location service not enabled", failures[0].Message)
	assert.NoError(t, failures[0].Err)
	assert.False(t, l.Updating())
}

func TestStart_PermissionInsufficient(t *testing.T) {
	for _, status := range []domain.AuthorizationState{domain.NotDetermined, domain.Denied, domain.Restricted} {
		t.Run(status.String(), func(t *testing.T) {
			p := newMockProvider(true, status)
			l, rec := newTestLocator(p, &mockGeocoder{})

			assert.False(t, l.CanLocate())
			l.Start()

			start, _ := p.counts()
			assert.Equal(t, 0, start)
			_, failures := rec.snapshot()
			require.Len(t, failures, 1)
			assert.Equal(t, domain.PermissionInsufficient, failures[0].Kind)
			assert.Equal(t, "insufficient location permission", failures[0].Message)
		})
	}
}

func TestStart_AlreadyUpdatingIsNoop(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.Start()
	l.Start()

	start, _ := p.counts()
	assert.Equal(t, 1, start)
	assert.True(t, l.Updating())
}

func TestStart_AppliesDesiredAccuracy(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedAlways)
	l, _ := newTestLocator(p, &mockGeocoder{})
	assert.Equal(t, domain.AccuracyKilometer, p.accuracy, "default is kilometer-level")

	l.SetDesiredAccuracy(domain.AccuracyHundredMeters)
	l.Start()

	assert.Equal(t, domain.AccuracyHundredMeters, l.DesiredAccuracy())
	assert.Equal(t, domain.AccuracyHundredMeters, p.accuracy)
}

// --- one-shot acquisition ---

func TestFixes_OnlyLastFixOfBatchIsResolved(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Chennai"}}}
	l, rec := newTestLocator(p, g)

	l.Start()
	p.deliverFixes(fixAt(12.0, 77.0), fixAt(13.0, 78.0))
	l.Wait()

	got := g.reverseFixes()
	require.Len(t, got, 1)
	assert.Equal(t, domain.Coordinate{Lat: 13.0, Lon: 78.0}, got[0].Coordinate)

	_, stop := p.counts()
	assert.Equal(t, 1, stop, "provider stopped after exactly one batch")

	cities, _ := rec.snapshot()
	require.Len(t, cities, 1)
	assert.Equal(t, "Chennai", cities[0].CityName)
}

func TestFixes_StoppedBeforeCallbackFires(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Shanghai"}}}
	l, _ := newTestLocator(p, g)

	var stopsAtCallback int
	var updatingAtCallback bool
	l.OnFinished(func(domain.ResolvedCity) {
		_, stopsAtCallback = p.counts()
		updatingAtCallback = l.Updating()
	})

	l.Start()
	p.deliverFixes(fixAt(31.23, 121.47))
	l.Wait()

	assert.Equal(t, 1, stopsAtCallback)
	assert.False(t, updatingAtCallback)
}

func TestFixes_LateBatchAfterStopIsDropped(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Shanghai"}}}
	l, rec := newTestLocator(p, g)

	l.Start()
	p.deliverFixes(fixAt(31.0, 121.0))
	p.deliverFixes(fixAt(32.0, 122.0))
	l.Wait()

	assert.Len(t, g.reverseFixes(), 1)
	cities, _ := rec.snapshot()
	assert.Len(t, cities, 1)
	_, stop := p.counts()
	assert.Equal(t, 1, stop)
}

func TestFixes_EmptyBatchKeepsCycleRunning(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.Start()
	p.deliverFixes()

	assert.True(t, l.Updating())
	_, stop := p.counts()
	assert.Equal(t, 0, stop)
}

func TestStop_Idempotent(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.Stop() // nothing running
	l.Start()
	l.Stop()
	l.Stop()

	start, stop := p.counts()
	assert.Equal(t, 1, start)
	assert.Equal(t, 1, stop)
	assert.False(t, l.Updating())
}

func TestStart_RestartAfterCycleCompletes(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Shenzhen"}}}
	l, rec := newTestLocator(p, g)

	for i := 0; i < 2; i++ {
		l.Start()
		p.deliverFixes(fixAt(22.54, 114.05))
		l.Wait()
	}

	start, stop := p.counts()
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, stop)
	cities, _ := rec.snapshot()
	assert.Len(t, cities, 2)
}

// --- resolution outcomes ---

func TestResolution_CityScenarios(t *testing.T) {
	tests := []struct {
		name  string
		place domain.PlaceDescription
		want  string
	}{
		{
			name:  "locality present",
			place: domain.PlaceDescription{Locality: "Shanghai", AdministrativeArea: "Shanghai Municipality"},
			want:  "Shanghai",
		},
		{
			name:  "municipality without locality",
			place: domain.PlaceDescription{AdministrativeArea: "Beijing Municipality"},
			want:  "Beijing Municipality",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider(true, domain.AuthorizedAlways)
			g := &mockGeocoder{places: []domain.PlaceDescription{tt.place}}
			l, rec := newTestLocator(p, g)

			fix := fixAt(39.9, 116.4)
			l.Start()
			p.deliverFixes(fix)
			l.Wait()

			cities, failures := rec.snapshot()
			assert.Empty(t, failures)
			require.Len(t, cities, 1)

			want := domain.ResolvedCity{Fix: fix, Place: tt.place, CityName: tt.want}
			if diff := cmp.Diff(want, cities[0], cmpopts.IgnoreFields(domain.ResolvedCity{}, "ResolvedAt")); diff != "" {
				t.Errorf("resolved city mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolution_ZeroPlacemarks(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedAlways)
	l, rec := newTestLocator(p, &mockGeocoder{})

	l.Start()
	p.deliverFixes(fixAt(0, 0))
	l.Wait()

	cities, failures := rec.snapshot()
	assert.Empty(t, cities, "no city callback")
	require.Len(t, failures, 1)
	assert.Equal(t, domain.GeocodeEmptyResult, failures[0].Kind)
	assert.Equal(t, "failed to obtain address information", failures[0].Message)
	assert.NoError(t, failures[0].Err)
}

func TestResolution_IncompletePlace(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedAlways)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Country: "China"}}}
	l, rec := newTestLocator(p, g)

	l.Start()
	p.deliverFixes(fixAt(35, 105))
	l.Wait()

	cities, failures := rec.snapshot()
	assert.Empty(t, cities)
	require.Len(t, failures, 1)
	assert.Equal(t, domain.GeocodeIncompletePlace, failures[0].Kind)
	assert.Equal(t, domain.MsgAddressUnavailable, failures[0].Message)
}

func TestResolution_GeocoderErrorPassesThrough(t *testing.T) {
	upstream := errors.New("network unreachable")
	p := newMockProvider(true, domain.AuthorizedAlways)
	l, rec := newTestLocator(p, &mockGeocoder{err: upstream})

	l.Start()
	p.deliverFixes(fixAt(35, 105))
	l.Wait()

	_, failures := rec.snapshot()
	require.Len(t, failures, 1)
	assert.Equal(t, domain.GeocodeTransportError, failures[0].Kind)
	assert.ErrorIs(t, failures[0], upstream)
	assert.Empty(t, failures[0].Message)

	_, stop := p.counts()
	assert.Equal(t, 1, stop, "stopped regardless of resolver outcome")
}

// --- provider failures ---

func TestProviderFailure_PermissionDeniedRerequests(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	l, rec := newTestLocator(p, &mockGeocoder{})

	l.Start()
	p.deliverFailure(fmt.Errorf("core location: %w", domain.ErrPermissionDenied))

	assert.Equal(t, []domain.AuthorizationKind{domain.WhenInUse}, p.authRequests)
	_, stop := p.counts()
	assert.Equal(t, 1, stop)
	_, failures := rec.snapshot()
	assert.Empty(t, failures, "denial is not surfaced")
}

func TestProviderFailure_OtherErrorsSurface(t *testing.T) {
	upstream := errors.New("location unknown")
	p := newMockProvider(true, domain.AuthorizedWhenInUse)
	l, rec := newTestLocator(p, &mockGeocoder{})

	l.Start()
	p.deliverFailure(upstream)

	_, failures := rec.snapshot()
	require.Len(t, failures, 1)
	assert.Equal(t, domain.ProviderError, failures[0].Kind)
	assert.Equal(t, upstream, failures[0].Err)
	assert.Empty(t, failures[0].Message)
	assert.False(t, l.Updating())
}

func TestProviderFailure_FacadeReusable(t *testing.T) {
	p := newMockProvider(false, domain.AuthorizedWhenInUse)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Wuhan"}}}
	l, rec := newTestLocator(p, g)

	l.Start()
	p.setState(true, domain.AuthorizedWhenInUse)
	l.Start()
	p.deliverFixes(fixAt(30.59, 114.30))
	l.Wait()

	cities, failures := rec.snapshot()
	require.Len(t, failures, 1)
	require.Len(t, cities, 1)
	assert.Equal(t, "Wuhan", cities[0].CityName)
}

// --- authorization gate ---

func TestRequestAuthorization_ForwardsKind(t *testing.T) {
	p := newMockProvider(true, domain.NotDetermined)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.RequestAuthorization(domain.Always)

	assert.Equal(t, []domain.AuthorizationKind{domain.Always}, p.authRequests)
}

func TestRequestAuthorization_ServiceDisabledIsNoop(t *testing.T) {
	p := newMockProvider(false, domain.NotDetermined)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.RequestAuthorization(domain.WhenInUse)

	assert.Empty(t, p.authRequests)
	assert.False(t, l.IsServiceEnabled())
}

func TestOnAuthorizationChanged_LastRegistrationWins(t *testing.T) {
	p := newMockProvider(true, domain.NotDetermined)
	l, _ := newTestLocator(p, &mockGeocoder{})

	var first, second []domain.AuthorizationState
	var gotProvider domain.LocationProvider
	l.OnAuthorizationChanged(func(_ domain.LocationProvider, s domain.AuthorizationState) {
		first = append(first, s)
	})
	l.OnAuthorizationChanged(func(provider domain.LocationProvider, s domain.AuthorizationState) {
		gotProvider = provider
		second = append(second, s)
	})

	p.deliverStatus(domain.AuthorizedWhenInUse)

	assert.Empty(t, first)
	assert.Equal(t, []domain.AuthorizationState{domain.AuthorizedWhenInUse}, second)
	assert.Same(t, p, gotProvider)
	assert.Equal(t, domain.AuthorizedWhenInUse, l.CurrentStatus())
	assert.True(t, l.CanLocate())
}

func TestOnAuthorizationChanged_StartFromHandler(t *testing.T) {
	p := newMockProvider(true, domain.NotDetermined)
	l, _ := newTestLocator(p, &mockGeocoder{})

	l.OnAuthorizationChanged(func(domain.LocationProvider, domain.AuthorizationState) {
		l.Start()
	})
	l.RequestAuthorization(domain.WhenInUse)
	p.deliverStatus(domain.AuthorizedWhenInUse)

	start, _ := p.counts()
	assert.Equal(t, 1, start)
}

// --- handler slots ---

func TestOnFinished_LastRegistrationWins(t *testing.T) {
	p := newMockProvider(true, domain.AuthorizedAlways)
	g := &mockGeocoder{places: []domain.PlaceDescription{{Locality: "Xi'an"}}}
	l, rec := newTestLocator(p, g)

	var mu sync.Mutex
	var replaced []string
	l.OnFinished(func(city domain.ResolvedCity) {
		mu.Lock()
		defer mu.Unlock()
		replaced = append(replaced, city.CityName)
	})

	l.Start()
	p.deliverFixes(fixAt(34.34, 108.94))
	l.Wait()

	cities, _ := rec.snapshot()
	assert.Empty(t, cities)
	assert.Equal(t, []string{"Xi'an"}, replaced)
}

func TestMode(t *testing.T) {
	l, _ := newTestLocator(newMockProvider(true, domain.AuthorizedAlways), &mockGeocoder{})

	assert.Equal(t, domain.ModeOnceCity, l.Mode())
	require.NoError(t, l.SetMode(domain.ModeOnceCity))
	assert.Error(t, l.SetMode(domain.LocationMode(7)))
}
