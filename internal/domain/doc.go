// Package domain models device position fixes, geocoded places and the
// city-name rule applied to them.
//
// # Collaborators
//
// Two external collaborators feed the domain:
//
//	LocationProvider  the device location source (authorization, start/stop,
//	                  asynchronous fix batches and failures)
//	Geocoder          the reverse (and forward) geocoding service
//
// Adapters under internal/adapter implement both. The locator package wires
// them together into the one-shot city lookup.
//
// # City Rule
//
// A geocoder answers with zero or more PlaceDescription candidates. Only the
// first is used:
//
//	Locality non-empty            → city = Locality
//	Locality empty, area present  → city = AdministrativeArea
//	both empty                    → GeocodeIncompletePlace
//	no candidates                 → GeocodeEmptyResult
//
// The administrative-area fallback exists for the four Chinese
// municipalities directly under the central government, whose placemarks
// carry the city only in the province-level field:
//
//	{Locality: "",         AdministrativeArea: "Beijing Municipality"} → "Beijing Municipality"
//	{Locality: "Shanghai", AdministrativeArea: "Shanghai Municipality"} → "Shanghai"
//
// # Failures
//
// Every failure is a *Failure carrying a FailureKind plus an optional
// underlying error and an optional message. The messages are fixed:
// [MsgServiceDisabled], [MsgPermissionInsufficient] and
// [MsgAddressUnavailable].
package domain
