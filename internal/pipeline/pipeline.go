// Package pipeline forwards resolved cities from the locator to a sink,
// retrying failed writes with exponential backoff.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Sink publishes one resolved city.
type Sink interface {
	Publish(ctx context.Context, city domain.ResolvedCity) error
}

// Pipeline buffers resolved cities and publishes them in order.
type Pipeline struct {
	queue   chan domain.ResolvedCity
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	running atomic.Bool

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline holding at most buffer unpublished cities.
func New(sink Sink, logger *slog.Logger, metrics *observability.Metrics, buffer int) *Pipeline {
	return &Pipeline{
		queue:   make(chan domain.ResolvedCity, buffer),
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		// Start at 200ms, double each retry, cap at 5s.
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// Submit queues a city without blocking. It returns false and drops the
// city when the queue is full.
func (p *Pipeline) Submit(city domain.ResolvedCity) bool {
	select {
	case p.queue <- city:
		return true
	default:
		p.metrics.CitiesDropped.Inc()
		p.logger.Warn("publish queue full, dropping city", "city", city.CityName)
		return false
	}
}

// CheckReadiness returns nil while Run is active.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("publish pipeline is not running")
	}
	return nil
}

// Run publishes queued cities until the context is cancelled. A city that
// keeps failing is retried until it is published or ctx ends.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "buffer", cap(p.queue))
	p.running.Store(true)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err(), "pending", len(p.queue))
			return nil
		case city := <-p.queue:
			if !p.publish(ctx, city) {
				return nil
			}
		}
	}
}

// publish writes one city, backing off between attempts. Returns false if
// the pipeline should stop.
func (p *Pipeline) publish(ctx context.Context, city domain.ResolvedCity) bool {
	backoff := p.initialBackoff
	for {
		err := p.sink.Publish(ctx, city)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		p.logger.Error("publish failed", "error", err, "city", city.CityName, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
}
