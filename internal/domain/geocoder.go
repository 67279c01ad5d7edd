package domain

import "context"

// Geocoder looks up place descriptions.
type Geocoder interface {
	// ReverseGeocode converts a fix to candidate places, best match first.
	ReverseGeocode(ctx context.Context, fix PositionFix) ([]PlaceDescription, error)

	// Geocode converts a free-form address to candidate places, best match first.
	Geocode(ctx context.Context, address string) ([]PlaceDescription, error)
}
