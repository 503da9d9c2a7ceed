// Package loader implements the fetch-and-derive cycle behind every list view:
// load on demand, replace wholesale on success, keep the previous data on
// failure, and discard stale responses so the newest request always wins.
package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Params are the optional filters a reload can carry. A nil field means "not
// filtered". Changing any field is a new request.
type Params struct {
	Status *string
	From   *time.Time
	To     *time.Time
	Search *string
	Limit  *int
	Offset *int
}

// Fetch retrieves one page of records from the remote API.
type Fetch[T any] func(ctx context.Context, p Params) ([]T, error)

// Transform post-processes a fetched collection for display (filtering,
// deduplication). It must be pure.
type Transform[T any] func(records []T) []T

// Derive computes display-ready aggregates (sums, counts) from the held
// collection.
type Derive[T any] func(records []T) map[string]int64

// State is a point-in-time snapshot of the loader.
type State[T any] struct {
	Records    []T
	Aggregates map[string]int64
	Loading    bool
	Err        error
	Loaded     bool
}

// Empty reports the defined "no records" display state: a completed load with
// nothing to show. It is not an error.
func (s State[T]) Empty() bool {
	return s.Loaded && s.Err == nil && len(s.Records) == 0
}

// Loader fetches a filterable collection and exposes derived values. Every
// request is tagged with a monotonically increasing sequence number; a
// response is applied only if no response from a later request has been
// applied yet.
type Loader[T any] struct {
	logger    *slog.Logger
	fetch     Fetch[T]
	transform Transform[T]
	derive    Derive[T]

	mu         sync.Mutex
	issued     uint64
	applied    uint64
	inflight   int
	records    []T
	aggregates map[string]int64
	err        error
	loaded     bool
	lastParams Params
}

// Option configures a Loader.
type Option[T any] func(*Loader[T])

// WithTransform sets the display transform applied to every successful fetch.
func WithTransform[T any](t Transform[T]) Option[T] {
	return func(l *Loader[T]) { l.transform = t }
}

// WithDerive sets the aggregate derivation run on every successful fetch.
func WithDerive[T any](d Derive[T]) Option[T] {
	return func(l *Loader[T]) { l.derive = d }
}

func New[T any](logger *slog.Logger, fetch Fetch[T], opts ...Option[T]) *Loader[T] {
	l := &Loader[T]{logger: logger, fetch: fetch}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load issues a request with the given filters. Safe for concurrent use; if a
// newer Load resolves first, this result is discarded.
func (l *Loader[T]) Load(ctx context.Context, p Params) error {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.inflight++
	l.lastParams = p
	l.mu.Unlock()

	records, err := l.fetch(ctx, p)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--

	if seq <= l.applied {
		// A later request already resolved; this response is stale.
		l.logger.Debug("discarding stale response", "seq", seq, "applied", l.applied)
		return nil
	}
	l.applied = seq

	if err != nil {
		// Keep the previous collection so the view never blanks on failure.
		l.err = err
		return err
	}

	if l.transform != nil {
		records = l.transform(records)
	}
	l.records = records
	if l.derive != nil {
		l.aggregates = l.derive(records)
	}
	l.err = nil
	l.loaded = true
	return nil
}

// Refresh re-runs the last request.
func (l *Loader[T]) Refresh(ctx context.Context) error {
	l.mu.Lock()
	p := l.lastParams
	l.mu.Unlock()
	return l.Load(ctx, p)
}

// Snapshot returns the current state. The record slice is copied.
func (l *Loader[T]) Snapshot() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]T, len(l.records))
	copy(records, l.records)

	aggregates := make(map[string]int64, len(l.aggregates))
	for k, v := range l.aggregates {
		aggregates[k] = v
	}

	return State[T]{
		Records:    records,
		Aggregates: aggregates,
		Loading:    l.inflight > 0,
		Err:        l.err,
		Loaded:     l.loaded,
	}
}
