package device

import "sync"

// dispatcher runs posted callbacks one at a time, in order, on a single
// goroutine. Posting never blocks, so a callback may post further work.
type dispatcher struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.pending) == 0 {
			if d.closed {
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}

// flush blocks until everything posted before the call has run.
func (d *dispatcher) flush() {
	ran := make(chan struct{})
	d.post(func() { close(ran) })
	select {
	case <-ran:
	case <-d.done:
	}
}

// close drains pending callbacks and stops the goroutine. It must not be
// called from a callback.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}
