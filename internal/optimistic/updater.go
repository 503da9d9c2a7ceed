// Package optimistic keeps dashboard counters responsive to same-session
// events. A local event adjusts the affected counters immediately; a
// debounced refetch then reconciles them against the wallet service, which is
// always the source of truth.
package optimistic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
)

// State is the reconciliation state of one counter.
type State string

const (
	// Synced: displayed value equals the last server read.
	Synced State = "synced"
	// Adjusted: a local delta is applied and awaiting reconciliation.
	Adjusted State = "optimistically_adjusted"
	// Reconciling: an authoritative refetch is in flight.
	Reconciling State = "reconciling"
)

// Refetch reads the authoritative counter values from upstream.
type Refetch func(ctx context.Context) (entities.Stats, error)

// Updater layers unreconciled local deltas on top of the last-known server
// values. Deltas are additive to whatever the base is, so an unrelated base
// refresh never erases an optimistic increment; only a successful
// reconciliation clears them.
type Updater struct {
	logger   *slog.Logger
	refetch  Refetch
	debounce time.Duration
	onChange func(entities.Stats)

	mu     sync.Mutex
	base   entities.Stats
	deltas map[entities.Counter]int64
	states map[entities.Counter]State
	timer  *time.Timer
}

// Option configures an Updater.
type Option func(*Updater)

// WithOnChange registers a hook invoked with the displayed values after every
// mutation. Used to push counter updates over the websocket channel.
func WithOnChange(fn func(entities.Stats)) Option {
	return func(u *Updater) { u.onChange = fn }
}

func New(logger *slog.Logger, refetch Refetch, debounce time.Duration, opts ...Option) *Updater {
	u := &Updater{
		logger:   logger,
		refetch:  refetch,
		debounce: debounce,
		base:     make(entities.Stats),
		deltas:   make(map[entities.Counter]int64),
		states:   make(map[entities.Counter]State),
	}
	for _, c := range entities.Counters() {
		u.states[c] = Synced
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// BindBus routes panel events to their counter sets. A recharge adjusts cash
// and recharge totals and nothing else; a plan purchase adjusts cash and plan
// sales; a commission adjusts cash and the commission total.
func (u *Updater) BindBus(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.RechargeCompleted) {
		u.Apply(e.Amount, entities.CounterCashBalance, entities.CounterRechargeTotal)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.PlanPurchaseCompleted) {
		u.Apply(e.Amount, entities.CounterCashBalance, entities.CounterPlanSales)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.CommissionEarned) {
		u.Apply(e.Amount, entities.CounterCashBalance, entities.CounterCommissionTotal)
	})
}

// SetBase adopts freshly loaded server values without touching pending
// deltas. Poll-cycle refreshes land here.
func (u *Updater) SetBase(stats entities.Stats) {
	u.mu.Lock()
	u.base = stats.Clone()
	u.mu.Unlock()
	u.notify()
}

// Apply adds delta to each listed counter and schedules a debounced
// reconciliation.
func (u *Updater) Apply(delta int64, counters ...entities.Counter) {
	u.mu.Lock()
	for _, c := range counters {
		u.deltas[c] += delta
		u.states[c] = Adjusted
	}
	if u.timer != nil {
		u.timer.Stop()
	}
	u.timer = time.AfterFunc(u.debounce, func() {
		u.Reconcile(context.Background())
	})
	u.mu.Unlock()

	u.logger.Debug("optimistic delta applied", "delta", delta, "counters", counters)
	u.notify()
}

// Reconcile issues the authoritative refetch now. On success the server
// values replace base and the deltas that were pending at dispatch are
// dropped; deltas applied while the refetch was in flight stay additive, so
// the display never flashes back to a pre-event number. On failure all deltas
// stay.
func (u *Updater) Reconcile(ctx context.Context) {
	u.mu.Lock()
	inFlight := make(map[entities.Counter]int64, len(u.deltas))
	for c, d := range u.deltas {
		inFlight[c] = d
		u.states[c] = Reconciling
	}
	u.mu.Unlock()

	stats, err := u.refetch(ctx)

	u.mu.Lock()
	if err != nil {
		u.logger.Warn("reconciliation refetch failed, keeping local deltas", "error", err)
		for c := range inFlight {
			u.states[c] = Adjusted
		}
		u.mu.Unlock()
		return
	}

	u.base = stats.Clone()
	// Only the amounts captured at dispatch are covered by this server read.
	for c, d := range inFlight {
		remaining := u.deltas[c] - d
		if remaining == 0 {
			delete(u.deltas, c)
		} else {
			u.deltas[c] = remaining
		}
	}
	for _, c := range entities.Counters() {
		if u.deltas[c] != 0 {
			u.states[c] = Adjusted
		} else if u.states[c] == Reconciling {
			u.states[c] = Synced
		}
	}
	u.mu.Unlock()

	u.notify()
}

// Values returns the displayed counters: last-synced base plus unreconciled
// deltas.
func (u *Updater) Values() entities.Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.base.Clone()
	for c, d := range u.deltas {
		out[c] += d
	}
	for _, c := range entities.Counters() {
		if _, ok := out[c]; !ok {
			out[c] = 0
		}
	}
	return out
}

// StateOf reports the reconciliation state of one counter.
func (u *Updater) StateOf(c entities.Counter) State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.states[c]
}

func (u *Updater) notify() {
	if u.onChange != nil {
		u.onChange(u.Values())
	}
}
