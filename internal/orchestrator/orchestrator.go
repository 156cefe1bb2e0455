// Package orchestrator implements the repricing pipeline's concurrency
// binding (C3): a bounded worker pool that runs the Extract/Read/Decide/
// Calculate-and-Persist steps per event and reports a terminal outcome to
// the intake adapter, grounded on
// _examples/coachpo-meltica-gateway/internal/pool/object_pool.go's
// conc/pool-backed bounded concurrency and
// _examples/fairyhunter13-product-update-service-simulator/internal/queue/manager.go's
// worker/backlog shape.
package orchestrator

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	concpool "github.com/sourcegraph/conc/pool"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/config"
	"github.com/northfield/repricer/internal/decision"
	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/errs"
	"github.com/northfield/repricer/internal/normalize"
	"github.com/northfield/repricer/internal/pricing"
	"github.com/northfield/repricer/internal/store"
	"github.com/northfield/repricer/internal/telemetry"
)

// Outcome is the terminal disposition of one inbound event, reported back
// to the intake adapter for ack/nack.
type Outcome int

const (
	// OutcomeOK is acked: the event either repriced or was legitimately
	// skipped (not an error).
	OutcomeOK Outcome = iota
	// OutcomeRetry is nacked/left invisible: only store-access errors
	// warrant a retry.
	OutcomeRetry
)

// InboundEvent is a single raw event handed to the orchestrator by an
// intake adapter (C1).
type InboundEvent struct {
	Source  model.Source
	Payload []byte
}

// Orchestrator binds C2 (via Normalizer), C6 (via store.Gateway), C4, and
// C5 behind a bounded worker pool.
type Orchestrator struct {
	store      store.Gateway
	normalizer *normalize.Normalizer
	clock      clock.Clock
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	breaker    *circuitBreaker
	cfg        config.WorkerConfig

	paused atomic.Bool

	processed atomic.Int64
	failed    atomic.Int64
	started   time.Time
}

// New constructs an Orchestrator. logger must be non-nil; pass
// slog.New(slog.DiscardHandler) in tests that don't care about output.
func New(st store.Gateway, normalizer *normalize.Normalizer, storeCfg config.StoreConfig, workerCfg config.WorkerConfig, c clock.Clock, m *telemetry.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      st,
		normalizer: normalizer,
		clock:      c,
		metrics:    m,
		logger:     logger,
		breaker:    newCircuitBreaker(storeCfg.CircuitBreakerThreshold, storeCfg.CircuitBreakerWindow, storeCfg.CircuitBreakerCooldown, c),
		cfg:        workerCfg,
		started:    c.Now(),
	}
}

// Run drains events from in using a worker pool bounded at
// cfg.MaxInFlight, calling report with each event's terminal Outcome. Run
// blocks until in is closed and every in-flight event finishes, or until
// ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context, in <-chan InboundEvent, report func(InboundEvent, Outcome)) {
	p := concpool.New().WithMaxGoroutines(o.cfg.MaxInFlight)

	for {
		select {
		case <-ctx.Done():
			p.Wait()
			return
		case ev, ok := <-in:
			if !ok {
				p.Wait()
				return
			}
			p.Go(func() {
				outcome := o.ProcessEvent(ctx, ev)
				report(ev, outcome)
			})
		}
	}
}

// ProcessEvent runs the 4-step pipeline for a single event. A panic inside
// the pipeline is logged with its stack and the event is acked.
func (o *Orchestrator) ProcessEvent(ctx context.Context, ev InboundEvent) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "panic in event pipeline", "error", r, "source", ev.Source, "stack", string(debug.Stack()))
			outcome = OutcomeOK
		}
	}()

	if o.paused.Load() {
		o.logger.DebugContext(ctx, "repricing paused, skipping event", "source", ev.Source)
		return OutcomeOK
	}

	eventCtx, cancel := context.WithTimeout(ctx, o.cfg.EventDeadline)
	defer cancel()

	start := o.clock.Now()
	o.metrics.EventReceived(eventCtx, string(ev.Source))

	outcome = o.runPipeline(eventCtx, ev)

	elapsedMS := float64(o.clock.Now().Sub(start)) / float64(time.Millisecond)
	o.metrics.ProcessingTime(eventCtx, elapsedMS)

	o.processed.Add(1)
	if outcome == OutcomeRetry {
		o.failed.Add(1)
	}
	return outcome
}

func (o *Orchestrator) runPipeline(ctx context.Context, ev InboundEvent) Outcome {
	// Step 1: Extract.
	offer, err := o.normalizer.Normalize(ctx, ev.Source, ev.Payload)
	if err != nil {
		if dropErr, ok := err.(*normalize.DropError); ok {
			o.logger.InfoContext(ctx, "event dropped", "reason", dropErr.Reason, "source", ev.Source)
			o.metrics.Decision(ctx, "dropped_"+dropErr.Reason)
			return OutcomeOK
		}
		o.logger.WarnContext(ctx, "normalize failed, retrying", "error", err)
		o.metrics.Retried(ctx)
		return OutcomeRetry
	}

	// Step 2: Read.
	listing, listingFound, err := o.readListing(ctx, offer)
	if err != nil {
		return o.handleStoreError(ctx, "read_listing", err)
	}

	var strategy *model.Strategy
	if listingFound {
		strategy, err = o.readStrategy(ctx, listing.StrategyID)
		if err != nil && errs.CodeOf(err) != errs.CodeNotFound {
			return o.handleStoreError(ctx, "read_strategy", err)
		}
	}

	// Step 3: Decide.
	dec := decision.Evaluate(listingFound, listing, strategy, offer)
	dec.ASIN = offer.ASIN
	o.metrics.Decision(ctx, dec.Reason)
	if !dec.ShouldReprice {
		o.logger.InfoContext(ctx, "skip", "reason", dec.Reason, "asin", offer.ASIN, "seller_id", dec.SellerID, "sku", dec.SKU)
		return OutcomeOK
	}

	// Step 4: Calculate & Persist.
	var competitorTiers []model.Tier
	if listing.IsB2B && len(listing.B2BTiers) > 0 {
		competitorTiers, err = guard(ctx, o.breaker, func(ctx context.Context) ([]model.Tier, error) {
			return o.store.GetCompetitorB2BTiers(ctx, offer.ASIN, offer.OurSellerID)
		})
		if err != nil {
			o.logger.WarnContext(ctx, "competitor B2B tier lookup failed, pricing standard only", "error", err, "asin", offer.ASIN)
			competitorTiers = nil
		}
	}

	calculated, err := pricing.Calculate(o.clock, listing, strategy, offer, competitorTiers)
	if err != nil {
		if se, ok := err.(*pricing.SkipError); ok {
			o.logger.InfoContext(ctx, "pricing skip", "reason", se.Reason, "asin", offer.ASIN, "sku", listing.SKU)
			o.metrics.Decision(ctx, "pricing_skip_"+se.Reason)
			return OutcomeOK
		}
		o.logger.ErrorContext(ctx, "pricing failed", "error", err)
		return OutcomeOK
	}

	if !calculated.PriceChanged {
		o.metrics.PriceWritten(ctx, false)
		return OutcomeOK
	}

	if err := o.writeCalculatedPrice(ctx, calculated); err != nil {
		return o.handleStoreError(ctx, "write_price", err)
	}
	o.metrics.PriceWritten(ctx, true)
	o.logger.InfoContext(ctx, "price written", "asin", calculated.ASIN, "seller_id", calculated.SellerID, "sku", calculated.SKU, "new_price", calculated.NewPrice.String(), "old_price", calculated.OldPrice.String())
	return OutcomeOK
}

func (o *Orchestrator) readListing(ctx context.Context, offer *model.OfferChange) (*model.ProductListing, bool, error) {
	listing, err := guard(ctx, o.breaker, func(ctx context.Context) (*model.ProductListing, error) {
		return o.store.GetListing(ctx, offer.ASIN, offer.OurSellerID, offer.SKU)
	})
	if err != nil {
		if errs.CodeOf(err) == errs.CodeNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return listing, true, nil
}

func (o *Orchestrator) readStrategy(ctx context.Context, strategyID string) (*model.Strategy, error) {
	if strategyID == "" {
		return nil, errs.New("orchestrator", errs.CodeNotFound)
	}
	return guard(ctx, o.breaker, func(ctx context.Context) (*model.Strategy, error) {
		return o.store.GetStrategy(ctx, strategyID)
	})
}

func (o *Orchestrator) writeCalculatedPrice(ctx context.Context, calculated model.CalculatedPrice) error {
	_, err := guard(ctx, o.breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.store.PutCalculatedPrice(ctx, calculated.SellerID, calculated.SKU, calculated)
	})
	return err
}

func (o *Orchestrator) handleStoreError(ctx context.Context, stage string, err error) Outcome {
	code := errs.CodeOf(err)
	o.metrics.StoreError(ctx, string(code))
	if errs.IsRetryable(err) {
		o.logger.WarnContext(ctx, "store error, retrying", "stage", stage, "error", err)
		o.metrics.Retried(ctx)
		return OutcomeRetry
	}
	o.logger.ErrorContext(ctx, "store error, dropping", "stage", stage, "error", err)
	return OutcomeOK
}

// SetPaused turns a process-wide pause on or off: while paused, every
// event is acked without running the pipeline. The /admin/repricing/pause
// endpoint does not call it; that endpoint sets repricing_paused on a
// single listing through the store gateway.
func (o *Orchestrator) SetPaused(paused bool) {
	o.paused.Store(paused)
}

// Paused reports the current pause state.
func (o *Orchestrator) Paused() bool {
	return o.paused.Load()
}

// BreakerState reports the circuit breaker's state for GET /health.
func (o *Orchestrator) BreakerState() string {
	return o.breaker.snapshot()
}

// Stats is the periodic/live snapshot rendered by GET /stats and the
// stats-log cron job.
type Stats struct {
	UptimeSeconds float64
	Processed     int64
	Failed        int64
	telemetry.Snapshot
}

// Snapshot returns the current processing counters.
func (o *Orchestrator) Snapshot() Stats {
	return Stats{
		UptimeSeconds: o.clock.Now().Sub(o.started).Seconds(),
		Processed:     o.processed.Load(),
		Failed:        o.failed.Load(),
		Snapshot:      o.metrics.Snapshot(),
	}
}
