package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/reconciler"
	"github.com/statuswatch/statuswatch/pkg/storage"
	"github.com/statuswatch/statuswatch/pkg/types"
)

// Checker fetches one service's status page and normalizes it. Checkers
// never fail; a broken fetch yields a result with a nil status.
type Checker interface {
	Check(ctx context.Context, svc types.Service) types.PollResult
}

// Sink receives metric mutations and failure counts.
type Sink interface {
	Apply(muts []reconciler.Mutation)
	CountFailure(serviceName, reason string)
}

// CycleObserver is notified when a monitoring cycle completes.
type CycleObserver interface {
	CycleCompleted(services int, elapsed time.Duration)
}

// Monitor drives the poll-reconcile cycle across all configured services.
type Monitor struct {
	services []types.Service
	checkers map[types.CheckerType]Checker
	store    storage.Store
	engine   *reconciler.Engine
	sink     Sink
	logger   zerolog.Logger

	observer CycleObserver

	cron    *cron.Cron
	running atomic.Bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithObserver registers a cycle completion observer.
func WithObserver(o CycleObserver) Option {
	return func(m *Monitor) { m.observer = o }
}

// New creates a monitor. checkers must cover every service type present
// in services.
func New(services []types.Service, checkers map[types.CheckerType]Checker, store storage.Store, engine *reconciler.Engine, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		services: services,
		checkers: checkers,
		store:    store,
		engine:   engine,
		sink:     sink,
		logger:   log.WithComponent("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs one cycle immediately, then schedules recurring cycles by
// cron expression. Cycles never overlap; an overdue cycle is skipped
// with a warning rather than run concurrently.
func (m *Monitor) Start(ctx context.Context, cronSpec string) error {
	m.RunCycle(ctx)

	c := cron.New()
	_, err := c.AddFunc(cronSpec, func() {
		m.RunCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cronSpec, err)
	}
	c.Start()
	m.cron = c
	m.logger.Info().Str("schedule", cronSpec).Msg("monitoring scheduled")
	return nil
}

// Stop cancels the schedule and waits for an in-flight cycle to finish.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// RunCycle performs one full monitoring cycle: load baselines, fetch
// every service, substitute cache on failure, reconcile and apply.
func (m *Monitor) RunCycle(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		// Only one cycle may be in flight; overlapping would let a later
		// comparison read a baseline this cycle already rewrote.
		m.logger.Warn().Msg("previous cycle still running, skipping")
		return
	}
	defer m.running.Store(false)

	start := time.Now()
	m.logger.Info().Int("services", len(m.services)).Msg("starting monitoring cycle")

	// Baselines are snapshotted before any fetch so every comparison in
	// this cycle sees the pre-cycle state.
	baselines := make(map[string]*types.PollResult, len(m.services))
	for _, svc := range m.services {
		baseline, err := m.store.Get(svc.Key)
		if err != nil {
			m.logger.Warn().Str("service", svc.Key).Err(err).Msg("baseline load failed")
			baseline = nil
		}
		baselines[svc.Key] = baseline
	}

	if m.engine.RedrawEveryCycle() {
		// One clear per cycle. Clearing per service would wipe the
		// series earlier services in this cycle already wrote.
		m.sink.Apply(reconciler.ClearAll())
	}

	for _, svc := range m.services {
		if ctx.Err() != nil {
			m.logger.Warn().Err(ctx.Err()).Msg("cycle interrupted")
			return
		}
		m.runService(ctx, svc, baselines[svc.Key])
	}

	elapsed := time.Since(start)
	if m.observer != nil {
		m.observer.CycleCompleted(len(m.services), elapsed)
	}
	m.logger.Info().Dur("elapsed", elapsed).Msg("monitoring cycle completed")
}

func (m *Monitor) runService(ctx context.Context, svc types.Service, baseline *types.PollResult) {
	logger := m.logger.With().Str("service", svc.Key).Logger()

	checker, ok := m.checkers[svc.Type]
	if !ok {
		logger.Error().Str("type", string(svc.Type)).Msg("no checker for service type")
		return
	}

	result := checker.Check(ctx, svc)
	fromCache := false

	if !result.Success {
		failureReason := result.RawStatus
		m.sink.CountFailure(svc.Name, failureReason)
		if baseline != nil && baseline.Status != nil {
			// Fall back to last-known-good so one transient vendor error
			// does not clear and later re-fire alerts.
			logger.Info().
				Str("reason", failureReason).
				Msg("check failed, using cached response")
			result = *baseline
			fromCache = true
		} else {
			logger.Warn().
				Str("reason", failureReason).
				Str("error", result.Error).
				Msg("check failed, no cached data, skipping")
			return
		}
	}

	if result.HasStatus() {
		logger.Info().
			Str("status", result.RawStatus).
			Float64("response_time", result.ResponseTime).
			Bool("from_cache", fromCache).
			Msg("check completed")
	}

	res := m.engine.Reconcile(svc.Name, baseline, result)
	m.sink.Apply(res.Mutations)

	if res.BaselineChanged && res.Baseline != nil {
		if err := m.store.Put(svc.Key, res.Baseline); err != nil {
			// Not fatal: next cycle re-detects the change and rewrites,
			// which only costs one extra metric write.
			logger.Warn().Err(err).Msg("baseline not persisted")
		}
	}
}
