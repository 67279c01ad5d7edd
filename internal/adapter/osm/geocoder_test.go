package osm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/codingsince1985/geo-golang"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	address  *geo.Address
	location *geo.Location
	err      error
	delay    time.Duration

	reverseCalls [][2]float64
}

func (f *fakeGeocoder) Geocode(string) (*geo.Location, error) {
	time.Sleep(f.delay)
	return f.location, f.err
}

func (f *fakeGeocoder) ReverseGeocode(lat, lng float64) (*geo.Address, error) {
	time.Sleep(f.delay)
	f.reverseCalls = append(f.reverseCalls, [2]float64{lat, lng})
	return f.address, f.err
}

func testGeocoder(fake *fakeGeocoder) *Geocoder {
	return newGeocoder(fake, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGeocoder_ReverseGeocode(t *testing.T) {
	fake := &fakeGeocoder{address: &geo.Address{
		FormattedAddress: "Tianhe, Guangzhou, Guangdong, China",
		City:             "Guangzhou",
		State:            "Guangdong",
		Country:          "China",
		CountryCode:      "CN",
	}}
	g := testGeocoder(fake)

	at := domain.Coordinate{Lat: 23.1291, Lon: 113.2644}
	places, err := g.ReverseGeocode(context.Background(), domain.PositionFix{Coordinate: at})
	require.NoError(t, err)
	require.Len(t, places, 1)

	assert.Equal(t, "Guangzhou", places[0].Locality)
	assert.Equal(t, "Guangdong", places[0].AdministrativeArea)
	assert.Equal(t, "China", places[0].Country)
	assert.Equal(t, at, places[0].Coordinate)
	assert.Equal(t, [][2]float64{{23.1291, 113.2644}}, fake.reverseCalls)
}

func TestGeocoder_ReverseGeocode_NotFound(t *testing.T) {
	g := testGeocoder(&fakeGeocoder{})

	places, err := g.ReverseGeocode(context.Background(), domain.PositionFix{})
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestGeocoder_ReverseGeocode_Error(t *testing.T) {
	g := testGeocoder(&fakeGeocoder{err: errors.New("connection refused")})

	_, err := g.ReverseGeocode(context.Background(), domain.PositionFix{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGeocoder_ReverseGeocode_ContextDeadline(t *testing.T) {
	g := testGeocoder(&fakeGeocoder{delay: 200 * time.Millisecond, address: &geo.Address{City: "Late"}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.ReverseGeocode(ctx, domain.PositionFix{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGeocoder_Geocode_ChainsReverseLookup(t *testing.T) {
	fake := &fakeGeocoder{
		location: &geo.Location{Lat: 22.5431, Lng: 114.0579},
		address:  &geo.Address{City: "Shenzhen", State: "Guangdong"},
	}
	g := testGeocoder(fake)

	places, err := g.Geocode(context.Background(), "Shenzhen Bay")
	require.NoError(t, err)
	require.Len(t, places, 1)

	assert.Equal(t, "Shenzhen", places[0].Locality)
	assert.Equal(t, domain.Coordinate{Lat: 22.5431, Lon: 114.0579}, places[0].Coordinate)
	assert.Equal(t, [][2]float64{{22.5431, 114.0579}}, fake.reverseCalls)
}

func TestGeocoder_Geocode_NotFound(t *testing.T) {
	fake := &fakeGeocoder{}
	g := testGeocoder(fake)

	places, err := g.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Empty(t, fake.reverseCalls)
}
