package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve_Success(t *testing.T) {
	g := &mockGeocoder{places: []domain.PlaceDescription{
		{Locality: "Shanghai", AdministrativeArea: "Shanghai Municipality", Country: "China"},
	}}
	r := NewResolver(g, 0, discardLogger())

	city, err := r.Resolve(context.Background(), fixAt(31.23, 121.47))
	require.NoError(t, err)

	assert.Equal(t, "Shanghai", city.CityName)
	assert.Equal(t, "China", city.Place.Country)
	assert.False(t, city.ResolvedAt.IsZero())
}

func TestResolver_Resolve_TransportError(t *testing.T) {
	upstream := errors.New("status 503")
	r := NewResolver(&mockGeocoder{err: upstream}, 0, discardLogger())

	_, err := r.Resolve(context.Background(), fixAt(1, 1))
	require.Error(t, err)

	assert.Equal(t, domain.GeocodeTransportError, domain.KindOf(err))
	assert.ErrorIs(t, err, upstream)
}

func TestResolver_Resolve_Timeout(t *testing.T) {
	r := NewResolver(&mockGeocoder{block: true}, 20*time.Millisecond, discardLogger())

	_, err := r.Resolve(context.Background(), fixAt(1, 1))
	require.Error(t, err)

	assert.Equal(t, domain.GeocodeTransportError, domain.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolver_ResolveAddress(t *testing.T) {
	g := &mockGeocoder{places: []domain.PlaceDescription{
		{AdministrativeArea: "Chongqing Municipality", Coordinate: domain.Coordinate{Lat: 29.56, Lon: 106.55}},
	}}
	r := NewResolver(g, 0, discardLogger())

	city, err := r.ResolveAddress(context.Background(), "  解放碑, 重庆 ")
	require.NoError(t, err)

	assert.Equal(t, "Chongqing Municipality", city.CityName)
	assert.Equal(t, domain.Coordinate{Lat: 29.56, Lon: 106.55}, city.Fix.Coordinate)
	assert.Equal(t, []string{"解放碑, 重庆"}, g.forward)
}

func TestResolver_ResolveAddress_Blank(t *testing.T) {
	g := &mockGeocoder{}
	r := NewResolver(g, 0, discardLogger())

	_, err := r.ResolveAddress(context.Background(), "   ")
	require.Error(t, err)

	assert.Equal(t, domain.GeocodeEmptyResult, domain.KindOf(err))
	assert.Empty(t, g.forward, "geocoder not called")
}
