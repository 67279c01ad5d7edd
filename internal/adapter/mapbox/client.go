package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode converts a fix to candidate places. Mapbox returns one
// feature per granularity, most specific first; each feature's context
// supplies the enclosing place and region.
func (c *Client) ReverseGeocode(ctx context.Context, fix domain.PositionFix) ([]domain.PlaceDescription, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", fix.Coordinate.Lon, fix.Coordinate.Lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
}

// Geocode converts a free-form address to candidate places.
func (c *Client) Geocode(ctx context.Context, address string) ([]domain.PlaceDescription, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"5"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "forward")
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) ([]domain.PlaceDescription, error) {
	start := time.Now()
	defer func() {
		c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
		c.logger.Debug("mapbox returned no features", "method", method)
		return nil, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	places := make([]domain.PlaceDescription, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		places = append(places, placeFromFeature(f))
	}
	return places, nil
}

// placeFromFeature maps Mapbox layers onto the place fields: "place" is the
// city, "region" the province or state.
func placeFromFeature(f feature) domain.PlaceDescription {
	p := domain.PlaceDescription{
		FormattedAddress: f.PlaceName,
		Raw:              f,
	}
	if len(f.Center) == 2 {
		p.Coordinate = domain.Coordinate{Lat: f.Center[1], Lon: f.Center[0]}
	}

	assign := func(id, text string) {
		layer, _, _ := strings.Cut(id, ".")
		switch layer {
		case "place":
			if p.Locality == "" {
				p.Locality = text
			}
		case "region":
			if p.AdministrativeArea == "" {
				p.AdministrativeArea = text
			}
		case "country":
			if p.Country == "" {
				p.Country = text
			}
		}
	}

	assign(f.ID, f.Text)
	for _, ctx := range f.Context {
		assign(ctx.ID, ctx.Text)
	}
	return p
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string         `json:"id"` // "<layer>.<id>", e.g. "place.1234"
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Relevance float64        `json:"relevance"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code,omitempty"`
}
