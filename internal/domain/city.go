package domain

import "strings"

// CityName derives the city from a place description. Some first-level
// municipalities (Beijing, Shanghai, Tianjin, Chongqing) come back from
// geocoders with no locality and only the administrative area set, so the
// administrative area is the fallback. ok is false when neither is present.
func CityName(place PlaceDescription) (name string, ok bool) {
	if city := strings.TrimSpace(place.Locality); city != "" {
		return place.Locality, true
	}
	if area := strings.TrimSpace(place.AdministrativeArea); area != "" {
		return place.AdministrativeArea, true
	}
	return "", false
}

// ResolvePlaces applies the city rule to the first candidate only. It returns
// a *Failure when there is no usable candidate.
func ResolvePlaces(fix PositionFix, places []PlaceDescription) (ResolvedCity, error) {
	if len(places) == 0 {
		return ResolvedCity{}, NewFailure(GeocodeEmptyResult, MsgAddressUnavailable)
	}

	place := places[0]
	city, ok := CityName(place)
	if !ok {
		return ResolvedCity{}, NewFailure(GeocodeIncompletePlace, MsgAddressUnavailable)
	}

	return ResolvedCity{
		Fix:        fix,
		Place:      place,
		CityName:   city,
		ResolvedAt: clock.Now().UTC(),
	}, nil
}
