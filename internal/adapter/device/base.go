// Package device provides domain.LocationProvider implementations: a replay
// provider fed from a YAML file and a network provider backed by the Google
// Geolocation API. Both deliver their callbacks on one serial goroutine.
package device

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/city-locator/internal/domain"
)

// Settings describes the simulated device permission model.
type Settings struct {
	// Enabled is the device-wide location services switch.
	Enabled bool

	// Authorization is the state before any prompt.
	Authorization domain.AuthorizationState

	// Grant is the answer to a permission prompt. AuthorizedAlways is
	// narrowed to AuthorizedWhenInUse for a when-in-use request.
	Grant domain.AuthorizationState
}

// source produces fixes for one running cycle. It returns when ctx is
// cancelled or it has nothing more to deliver.
type source func(ctx context.Context, emit func([]domain.PositionFix), fail func(error))

// base holds the permission model, callback set and cycle lifecycle shared by
// the providers.
type base struct {
	logger   *slog.Logger
	dispatch *dispatcher
	source   source

	mu       sync.Mutex
	settings Settings
	status   domain.AuthorizationState
	accuracy domain.Accuracy
	events   domain.ProviderEvents
	cancel   context.CancelFunc
	gen      uint64
	wg       sync.WaitGroup
}

func newBase(settings Settings, src source, logger *slog.Logger) *base {
	return &base{
		logger:   logger,
		dispatch: newDispatcher(),
		source:   src,
		settings: settings,
		status:   settings.Authorization,
		accuracy: domain.DefaultAccuracy,
	}
}

func (b *base) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings.Enabled
}

func (b *base) AuthorizationStatus() domain.AuthorizationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// RequestAuthorization answers the prompt with the configured grant. Only an
// undetermined state prompts; otherwise the request is ignored, as on a
// real device.
func (b *base) RequestAuthorization(kind domain.AuthorizationKind) {
	b.mu.Lock()
	if !b.settings.Enabled || b.status != domain.NotDetermined {
		b.mu.Unlock()
		return
	}
	granted := b.settings.Grant
	if granted == domain.AuthorizedAlways {
		granted = kind.Granted()
	}
	b.status = granted
	b.mu.Unlock()

	b.logger.Debug("authorization prompt answered", "kind", kind.String(), "status", granted.String())
	b.post(func(ev domain.ProviderEvents) {
		if ev.OnStatusChanged != nil {
			ev.OnStatusChanged(granted)
		}
	})
}

func (b *base) SetDesiredAccuracy(accuracy domain.Accuracy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accuracy = accuracy
}

func (b *base) desiredAccuracy() domain.Accuracy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accuracy
}

func (b *base) SetEvents(events domain.ProviderEvents) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = events
}

// StartUpdates begins a cycle. Without authorization the cycle fails with
// domain.ErrPermissionDenied. Starting twice restarts the source.
func (b *base) StartUpdates() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	authorized := b.settings.Enabled && b.status.Authorized()
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.mu.Unlock()

	if !authorized {
		b.logger.Debug("updates started without authorization")
		b.postIfCurrent(gen, func(ev domain.ProviderEvents) {
			if ev.OnFailure != nil {
				ev.OnFailure(domain.ErrPermissionDenied)
			}
		})
		return
	}

	emit := func(fixes []domain.PositionFix) {
		b.postIfCurrent(gen, func(ev domain.ProviderEvents) {
			if ev.OnFixes != nil {
				ev.OnFixes(fixes)
			}
		})
	}
	fail := func(err error) {
		b.postIfCurrent(gen, func(ev domain.ProviderEvents) {
			if ev.OnFailure != nil {
				ev.OnFailure(err)
			}
		})
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.source(ctx, emit, fail)
	}()
}

func (b *base) StopUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
}

// Flush blocks until every callback posted so far has been delivered.
func (b *base) Flush() {
	b.dispatch.flush()
}

// Close stops any running cycle and the callback goroutine.
func (b *base) Close() error {
	b.StopUpdates()
	b.wg.Wait()
	b.dispatch.close()
	return nil
}

func (b *base) post(fn func(domain.ProviderEvents)) {
	b.dispatch.post(func() {
		b.mu.Lock()
		ev := b.events
		b.mu.Unlock()
		fn(ev)
	})
}

// postIfCurrent drops the callback if the cycle that produced it has since
// been stopped or restarted.
func (b *base) postIfCurrent(gen uint64, fn func(domain.ProviderEvents)) {
	b.dispatch.post(func() {
		b.mu.Lock()
		current := b.gen == gen
		ev := b.events
		b.mu.Unlock()
		if current {
			fn(ev)
		}
	})
}
