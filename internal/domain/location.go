package domain

import (
	"fmt"
	"time"
)

// AuthorizationState is the location permission state reported by a provider.
type AuthorizationState int

const (
	NotDetermined AuthorizationState = iota
	Denied
	Restricted
	AuthorizedWhenInUse
	AuthorizedAlways
)

var authorizationNames = map[AuthorizationState]string{
	NotDetermined:       "notDetermined",
	Denied:              "denied",
	Restricted:          "restricted",
	AuthorizedWhenInUse: "authorizedWhenInUse",
	AuthorizedAlways:    "authorizedAlways",
}

func (s AuthorizationState) String() string {
	if name, ok := authorizationNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AuthorizationState(%d)", int(s))
}

// Authorized reports whether the state permits location updates.
func (s AuthorizationState) Authorized() bool {
	return s == AuthorizedAlways || s == AuthorizedWhenInUse
}

// ParseAuthorizationState converts a state name (as produced by String) back
// into an AuthorizationState.
func ParseAuthorizationState(name string) (AuthorizationState, error) {
	for state, n := range authorizationNames {
		if n == name {
			return state, nil
		}
	}
	return NotDetermined, fmt.Errorf("unknown authorization state %q", name)
}

// AuthorizationKind selects which permission prompt is issued.
type AuthorizationKind int

const (
	WhenInUse AuthorizationKind = iota
	Always
)

func (k AuthorizationKind) String() string {
	if k == Always {
		return "always"
	}
	return "whenInUse"
}

// Granted returns the state a provider moves to when a request of this kind
// is accepted.
func (k AuthorizationKind) Granted() AuthorizationState {
	if k == Always {
		return AuthorizedAlways
	}
	return AuthorizedWhenInUse
}

// Accuracy is the desired horizontal accuracy of a fix in meters.
type Accuracy float64

// Platform accuracy presets.
const (
	AccuracyBest             Accuracy = -1
	AccuracyNearestTenMeters Accuracy = 10
	AccuracyHundredMeters    Accuracy = 100
	AccuracyKilometer        Accuracy = 1000
	AccuracyThreeKilometers  Accuracy = 3000

	DefaultAccuracy = AccuracyKilometer
)

// LocationMode selects how the locator consumes fixes.
type LocationMode int

const (
	// ModeOnceCity acquires one fix, resolves its city and stops.
	ModeOnceCity LocationMode = iota
)

func (m LocationMode) String() string {
	if m == ModeOnceCity {
		return "onceCity"
	}
	return fmt.Sprintf("LocationMode(%d)", int(m))
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// PositionFix is one position sample reported by a provider.
type PositionFix struct {
	Coordinate Coordinate `json:"coordinate"`
	Accuracy   float64    `json:"accuracy,omitempty"` // meters, 0 if unknown
	Timestamp  time.Time  `json:"timestamp"`

	// Raw is the provider's native location object, if any.
	Raw any `json:"-"`
}

// PlaceDescription is one candidate returned by a geocoding provider.
type PlaceDescription struct {
	Locality           string     `json:"locality,omitempty"`
	AdministrativeArea string     `json:"administrative_area,omitempty"`
	Country            string     `json:"country,omitempty"`
	FormattedAddress   string     `json:"formatted_address,omitempty"`
	Coordinate         Coordinate `json:"coordinate"`

	// Raw is the provider's native placemark, if any.
	Raw any `json:"-"`
}

// ResolvedCity is the outcome of one successful resolution. It is delivered
// once and never stored.
type ResolvedCity struct {
	Fix        PositionFix      `json:"fix"`
	Place      PlaceDescription `json:"place"`
	CityName   string           `json:"city"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
