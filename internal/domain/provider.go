package domain

// ProviderEvents carries the callbacks a LocationProvider invokes. Providers
// deliver every callback on a single goroutine, in order.
type ProviderEvents struct {
	OnStatusChanged func(status AuthorizationState)
	OnFixes         func(fixes []PositionFix)
	OnFailure       func(err error)
}

// LocationProvider is the device location source.
type LocationProvider interface {
	// Enabled reports whether location services are available at all.
	Enabled() bool

	AuthorizationStatus() AuthorizationState

	// RequestAuthorization issues a permission prompt. The outcome is
	// reported through ProviderEvents.OnStatusChanged.
	RequestAuthorization(kind AuthorizationKind)

	SetDesiredAccuracy(accuracy Accuracy)

	StartUpdates()
	StopUpdates()

	// SetEvents installs the callback set, replacing any previous one.
	SetEvents(events ProviderEvents)
}
