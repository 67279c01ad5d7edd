package locator

import (
	"context"
	"errors"

	"github.com/couchcryptid/city-locator/internal/domain"
)

// Start begins one acquisition cycle. Precondition failures are reported
// through the failure handler and never reach the provider. Calling Start
// while a cycle is already in flight does nothing.
func (l *Locator) Start() {
	l.start(nil)
}

// start runs Start. join, when set, is called under the lock with the id of
// the cycle this call started or joined, before any outcome of that cycle can
// be reported. The precondition failure, if any, is returned.
func (l *Locator) start(join func(cycle uint64)) *domain.Failure {
	if !l.provider.Enabled() {
		f := domain.NewFailure(domain.ServiceDisabled, domain.MsgServiceDisabled)
		l.rejectStart(f)
		return f
	}
	if !l.CanLocate() {
		f := domain.NewFailure(domain.PermissionInsufficient, domain.MsgPermissionInsufficient)
		l.rejectStart(f)
		return f
	}

	l.mu.Lock()
	if l.updating {
		if join != nil {
			join(l.cycle)
		}
		l.mu.Unlock()
		l.logger.Debug("locate already in progress")
		return nil
	}
	l.updating = true
	l.cycle++
	if join != nil {
		join(l.cycle)
	}
	accuracy := l.accuracy
	l.mu.Unlock()

	l.metrics.CyclesStarted.Inc()
	l.metrics.LocatorUpdating.Set(1)
	l.logger.Info("starting location updates", "accuracy_m", float64(accuracy))

	l.provider.SetDesiredAccuracy(accuracy)
	l.provider.StartUpdates()
	return nil
}

// Stop ends the current acquisition cycle, if any. It does not cancel a
// resolution that is already in flight.
func (l *Locator) Stop() {
	l.stop()
}

// SetDesiredAccuracy stores the accuracy and forwards it to the provider.
// It takes effect on the next Start.
func (l *Locator) SetDesiredAccuracy(accuracy domain.Accuracy) {
	l.mu.Lock()
	l.accuracy = accuracy
	l.mu.Unlock()

	l.provider.SetDesiredAccuracy(accuracy)
}

// DesiredAccuracy returns the accuracy applied on the next Start.
func (l *Locator) DesiredAccuracy() domain.Accuracy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accuracy
}

// Updating reports whether an acquisition cycle is in flight.
func (l *Locator) Updating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating
}

// stop clears the cycle flag and tells the provider to stop. It returns the
// id of the cycle it ended and whether one was in flight.
func (l *Locator) stop() (uint64, bool) {
	l.mu.Lock()
	if !l.updating {
		l.mu.Unlock()
		return 0, false
	}
	l.updating = false
	cycle := l.cycle
	l.mu.Unlock()

	l.metrics.LocatorUpdating.Set(0)
	l.provider.StopUpdates()
	return cycle, true
}

func (l *Locator) rejectStart(f *domain.Failure) {
	l.metrics.StartFailures.WithLabelValues(f.Kind.String()).Inc()
	l.logger.Warn("cannot start location updates", "kind", f.Kind, "status", l.CurrentStatus())
	l.fail(f)
}

// handleFixes consumes one provider batch. Only the newest fix is resolved;
// the cycle is stopped before resolution starts, so callbacks never observe
// a running provider.
func (l *Locator) handleFixes(fixes []domain.PositionFix) {
	l.metrics.FixesReceived.Add(float64(len(fixes)))
	if len(fixes) == 0 {
		return
	}

	cycle, ok := l.stop()
	if !ok {
		l.metrics.FixesDiscarded.Add(float64(len(fixes)))
		l.logger.Debug("dropping fixes delivered outside a cycle", "count", len(fixes))
		return
	}

	fix := fixes[len(fixes)-1]
	l.metrics.FixesDiscarded.Add(float64(len(fixes) - 1))
	l.logger.Info("fix received",
		"lat", fix.Coordinate.Lat,
		"lon", fix.Coordinate.Lon,
		"batch", len(fixes),
	)

	l.inflight.Add(1)
	go l.resolveFix(cycle, fix)
}

func (l *Locator) resolveFix(cycle uint64, fix domain.PositionFix) {
	defer l.inflight.Done()

	city, err := l.resolver.Resolve(context.Background(), fix)
	if err != nil {
		f := asFailure(err, domain.GeocodeTransportError)
		l.metrics.Resolutions.WithLabelValues(f.Kind.String()).Inc()
		l.fail(f)
		l.cycleDone(cycle, domain.ResolvedCity{}, f)
		return
	}
	l.finish(city)
	l.cycleDone(cycle, city, nil)
}

// handleFailure reacts to a provider error. A denied permission triggers a
// new when-in-use request and is not surfaced; anything else is.
func (l *Locator) handleFailure(err error) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		l.logger.Warn("location permission denied, requesting again")
		cycle, ok := l.stop()
		l.RequestAuthorization(domain.WhenInUse)
		if ok {
			l.cycleDone(cycle, domain.ResolvedCity{}, domain.WrapFailure(domain.PermissionDenied, err))
		}
		return
	}

	l.logger.Warn("location provider failed", "error", err)
	cycle, ok := l.stop()
	f := asFailure(err, domain.ProviderError)
	l.fail(f)
	if ok {
		l.cycleDone(cycle, domain.ResolvedCity{}, f)
	}
}

// cycleDone reports the outcome of one cycle to the cycle observer.
func (l *Locator) cycleDone(cycle uint64, city domain.ResolvedCity, err error) {
	l.mu.Lock()
	observer := l.cycleObserver
	l.mu.Unlock()

	if observer != nil {
		observer(cycle, city, err)
	}
}
