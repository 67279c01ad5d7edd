package locator

import (
	"context"
	"sync"

	"github.com/couchcryptid/city-locator/internal/domain"
)

type outcome struct {
	city domain.ResolvedCity
	err  error
}

// Client adapts the callback facade to blocking calls for the CLI and the
// HTTP surface. It takes over the locator's status and finish slots; callers
// that also need every resolved city pass an onCity hook.
type Client struct {
	locator *Locator
	onCity  FinishHandler

	mu            sync.Mutex
	cityWaiters   map[uint64][]chan outcome
	statusWaiters []chan domain.AuthorizationState
}

// NewClient installs the client's handlers on l. onCity may be nil.
func NewClient(l *Locator, onCity FinishHandler) *Client {
	c := &Client{
		locator:     l,
		onCity:      onCity,
		cityWaiters: make(map[uint64][]chan outcome),
	}
	l.OnAuthorizationChanged(c.statusChanged)
	l.OnFinished(c.finished)
	l.observeCycles(c.cycleDone)
	return c
}

// Locator returns the wrapped facade.
func (c *Client) Locator() *Locator {
	return c.locator
}

// Authorize prompts for when-in-use permission if the state is not yet
// determined and waits for the answer. It returns the resulting state.
func (c *Client) Authorize(ctx context.Context) (domain.AuthorizationState, error) {
	l := c.locator
	if !l.IsServiceEnabled() || l.CurrentStatus() != domain.NotDetermined {
		return l.CurrentStatus(), nil
	}

	ch := make(chan domain.AuthorizationState, 1)
	c.mu.Lock()
	c.statusWaiters = append(c.statusWaiters, ch)
	c.mu.Unlock()

	// Another caller's prompt may have been answered before the waiter was
	// registered; a decided state ignores further prompts.
	if status := l.CurrentStatus(); status != domain.NotDetermined {
		c.dropStatusWaiter(ch)
		return status, nil
	}

	l.RequestAuthorization(domain.WhenInUse)

	select {
	case status := <-ch:
		return status, nil
	case <-ctx.Done():
		c.dropStatusWaiter(ch)
		return l.CurrentStatus(), ctx.Err()
	}
}

// Locate runs one cycle and waits for its outcome. Concurrent callers share
// the cycle in flight; a cycle abandoned by a cancelled call never answers a
// later one. Failures are returned as *domain.Failure.
func (c *Client) Locate(ctx context.Context) (domain.ResolvedCity, error) {
	if _, err := c.Authorize(ctx); err != nil {
		return domain.ResolvedCity{}, err
	}

	ch := make(chan outcome, 1)
	var cycle uint64
	if f := c.locator.start(func(id uint64) {
		cycle = id
		c.mu.Lock()
		c.cityWaiters[id] = append(c.cityWaiters[id], ch)
		c.mu.Unlock()
	}); f != nil {
		return domain.ResolvedCity{}, f
	}

	select {
	case o := <-ch:
		return o.city, o.err
	case <-ctx.Done():
		c.mu.Lock()
		if waiters := removeWaiter(c.cityWaiters[cycle], ch); len(waiters) > 0 {
			c.cityWaiters[cycle] = waiters
		} else {
			delete(c.cityWaiters, cycle)
		}
		c.mu.Unlock()
		return domain.ResolvedCity{}, ctx.Err()
	}
}

// Geocode runs a forward lookup of address and waits for its outcome. The
// lookup is bound to this call: it does not use the locator's geocode
// handler and is cancelled with ctx.
func (c *Client) Geocode(ctx context.Context, address string) (domain.ResolvedCity, error) {
	l := c.locator
	ch := make(chan outcome, 1)

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		city, err := l.lookupAddress(ctx, address)
		ch <- outcome{city: city, err: err}
	}()

	select {
	case o := <-ch:
		return o.city, o.err
	case <-ctx.Done():
		return domain.ResolvedCity{}, ctx.Err()
	}
}

func (c *Client) statusChanged(_ domain.LocationProvider, status domain.AuthorizationState) {
	if status == domain.NotDetermined {
		return
	}
	c.mu.Lock()
	waiters := c.statusWaiters
	c.statusWaiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- status
	}
}

func (c *Client) dropStatusWaiter(ch chan domain.AuthorizationState) {
	c.mu.Lock()
	c.statusWaiters = removeWaiter(c.statusWaiters, ch)
	c.mu.Unlock()
}

func (c *Client) finished(city domain.ResolvedCity) {
	if c.onCity != nil {
		c.onCity(city)
	}
}

func (c *Client) cycleDone(cycle uint64, city domain.ResolvedCity, err error) {
	c.mu.Lock()
	waiters := c.cityWaiters[cycle]
	delete(c.cityWaiters, cycle)
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome{city: city, err: err}
	}
}

func removeWaiter[T any](waiters []chan T, ch chan T) []chan T {
	for i, w := range waiters {
		if w == ch {
			return append(waiters[:i], waiters[i+1:]...)
		}
	}
	return waiters
}
