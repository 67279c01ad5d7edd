package locator

import "github.com/couchcryptid/city-locator/internal/domain"

// RequestAuthorization asks the provider to prompt for permission. When
// location services are disabled it only logs. The outcome arrives through
// the status handler.
func (l *Locator) RequestAuthorization(kind domain.AuthorizationKind) {
	if !l.provider.Enabled() {
		l.logger.Warn("location services unavailable on this device", "kind", kind)
		return
	}
	l.provider.RequestAuthorization(kind)
}

// IsServiceEnabled reports whether location services are available.
func (l *Locator) IsServiceEnabled() bool {
	return l.provider.Enabled()
}

// CurrentStatus returns the provider's authorization state.
func (l *Locator) CurrentStatus() domain.AuthorizationState {
	return l.provider.AuthorizationStatus()
}

// CanLocate reports whether the current authorization permits updates.
func (l *Locator) CanLocate() bool {
	return l.CurrentStatus().Authorized()
}

// OnAuthorizationChanged registers the handler for authorization changes.
// Pass nil to clear it.
func (l *Locator) OnAuthorizationChanged(handler StatusHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statusHandler = handler
}

func (l *Locator) handleStatus(status domain.AuthorizationState) {
	l.logger.Debug("authorization changed", "status", status)

	l.mu.Lock()
	handler := l.statusHandler
	l.mu.Unlock()

	if handler != nil {
		handler(l.provider, status)
	}
}
