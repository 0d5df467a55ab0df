package stats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mkarpov/usagevault/internal/logging"
)

// Refresher drives the periodic "live" usage refresh: each tick generates a
// small batch of records, simulating the trickle a real metering feed would
// deliver. An in-flight guard drops a tick that would overlap a slow
// previous one instead of stacking refreshes.
type Refresher struct {
	service   *Service
	generator *Generator
	interval  time.Duration
	batch     int
	logger    logging.Logger

	inFlight atomic.Bool
	trigger  chan struct{}
}

func NewRefresher(service *Service, generator *Generator, interval time.Duration, batch int, logger logging.Logger) *Refresher {
	return &Refresher{
		service:   service,
		generator: generator,
		interval:  interval,
		batch:     batch,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
	}
}

// RefreshNow requests an immediate refresh. Non-blocking; a request while a
// refresh is already pending is coalesced.
func (r *Refresher) RefreshNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes on every tick and on manual triggers until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Debug(ctx, "refresh already in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	recs := r.generator.Generate(r.batch, 1)
	n, err := r.service.RecordAll(ctx, recs)
	if err != nil {
		r.logger.Warn(ctx, "usage refresh incomplete", "recorded", n, "error", err)
		return
	}
	r.logger.Debug(ctx, "usage refreshed", "recorded", n)
}
