package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/smoother-operators/memolith/internal/invariant"
	"github.com/smoother-operators/memolith/internal/logging"
)

// ErrResolveTimeout is returned when a resolution did not produce a value
// within its deadline.
var ErrResolveTimeout = errors.New("resolve timed out")

// Outcome describes how a resolution concluded.
type Outcome string

const (
	OutcomeCacheHit          Outcome = "cache_hit"
	OutcomeComputed          Outcome = "computed"
	OutcomeTimedOut          Outcome = "timed_out"
	OutcomeInvalidKey        Outcome = "invalid_key"
	OutcomeComputationFailed Outcome = "computation_failed"
)

// ComputeFunc produces the value for a key. It must be a pure function of
// the key: every caller waiting on the same key receives the result of a
// single invocation.
type ComputeFunc[K comparable, V any] func(key K) (V, error)

type Result[V any] struct {
	Value          V
	Outcome        Outcome
	CacheSizeAfter int
}

// Cache is the bounded key-value store backing an Engine.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Size() int
	Capacity() int
	Clear()
}

// flight is a single execution of a compute function, shared by every caller
// resolving its key while it runs.
type flight[V any] struct {
	startedAt time.Time
	deadline  time.Duration

	// computed is closed by the compute goroutine once computedValue and
	// computedErr are set
	computed      chan struct{}
	computedValue V
	computedErr   error

	// done is closed by the finalizer once value and err are settled
	done  chan struct{}
	value V
	err   error
}

// Engine memoizes expensive computations in a bounded cache and deduplicates
// concurrent requests for the same key: the first caller claims the key and
// starts the computation, later callers join the in-flight computation and
// wait for its result.
//
// Every computation is bounded by a deadline anchored at the moment it was
// claimed. A computation that misses its deadline keeps running, but its
// result is discarded: it is never stored in the cache and is not delivered
// to any caller. The engine never cancels a running computation.
type Engine[K comparable, V any] struct {
	cache           Cache[K, V]
	validate        func(K) error
	defaultDeadline time.Duration

	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	mutex   sync.Mutex
	flights map[K]*flight[V]
}

func NewEngine[K comparable, V any](
	cache Cache[K, V],
	validate func(K) error,
	defaultDeadline time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) (*Engine[K, V], error) {
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if validate == nil {
		return nil, fmt.Errorf("validate function is required")
	}
	if defaultDeadline <= 0 {
		return nil, fmt.Errorf("default deadline must be positive, got %s", defaultDeadline)
	}

	return &Engine[K, V]{
		cache:           cache,
		validate:        validate,
		defaultDeadline: defaultDeadline,
		nowFunc:         nowFunc,
		afterFunc:       afterFunc,
		flights:         make(map[K]*flight[V]),
	}, nil
}

// Resolve returns the value for key, computing and caching it if necessary.
//
// A deadline <= 0 means the engine's default deadline. A caller joining an
// in-flight computation never waits past the deadline of that computation,
// nor past its own. A cancelled context is reported as a timeout for the
// cancelled caller only.
func (e *Engine[K, V]) Resolve(ctx context.Context, key K, compute ComputeFunc[K, V], deadline time.Duration) (Result[V], error) {
	start := e.nowFunc()
	if deadline <= 0 {
		deadline = e.defaultDeadline
	}

	result, err := e.resolve(ctx, key, compute, deadline)

	attributesOption := metric.WithAttributes(attribute.String("outcome", string(result.Outcome)))
	metrics.resolveCount.Add(ctx, 1, attributesOption)
	metrics.resolveDuration.Record(ctx, e.nowFunc().Sub(start).Seconds(), attributesOption)

	return result, err
}

func (e *Engine[K, V]) resolve(ctx context.Context, key K, compute ComputeFunc[K, V], deadline time.Duration) (Result[V], error) {
	logger := logging.FromContext(ctx)

	if err := e.validate(key); err != nil {
		return Result[V]{Outcome: OutcomeInvalidKey}, fmt.Errorf("invalid key: %w", err)
	}

	if value, ok := e.cache.Get(key); ok {
		logger.InfoContext(ctx, "Resolving computation", "cache", "hit")
		return Result[V]{Value: value, Outcome: OutcomeCacheHit, CacheSizeAfter: e.cache.Size()}, nil
	}

	fl, claimed, cachedValue, cached := e.claimOrJoin(key, deadline)
	if cached {
		logger.InfoContext(ctx, "Resolving computation", "cache", "hit")
		return Result[V]{Value: cachedValue, Outcome: OutcomeCacheHit, CacheSizeAfter: e.cache.Size()}, nil
	}

	if claimed {
		logger.InfoContext(ctx, "Resolving computation", "cache", "miss")
		e.launch(ctx, key, fl, compute)
	} else {
		logger.InfoContext(ctx, "Joining in-flight computation")
	}

	return e.await(ctx, fl, deadline)
}

// claimOrJoin registers a new flight for key or returns the one already in
// progress. The registry lock also covers a cache re-check: a flight that
// completed between the caller's unlocked lookup and now is seen as a hit
// instead of triggering a recomputation.
func (e *Engine[K, V]) claimOrJoin(key K, deadline time.Duration) (fl *flight[V], claimed bool, cachedValue V, cached bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var zero V
	if value, ok := e.cache.Get(key); ok {
		return nil, false, value, true
	}

	if existing, ok := e.flights[key]; ok {
		return existing, false, zero, false
	}

	fl = &flight[V]{
		startedAt: e.nowFunc(),
		deadline:  deadline,
		computed:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.flights[key] = fl
	return fl, true, zero, false
}

// launch starts the compute goroutine and the finalizer goroutine for a
// freshly claimed flight.
func (e *Engine[K, V]) launch(ctx context.Context, key K, fl *flight[V], compute ComputeFunc[K, V]) {
	metrics.inFlight.Add(ctx, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				fl.computedErr = fmt.Errorf("compute panicked: %v", recovered)
				close(fl.computed)
			}
		}()

		value, err := compute(key)

		fl.computedValue = value
		fl.computedErr = err
		close(fl.computed)
	}()

	go func() {
		remaining := fl.deadline - e.nowFunc().Sub(fl.startedAt)
		select {
		case <-fl.computed:
			e.settle(key, fl, fl.computedValue, fl.computedErr)
		case <-e.afterFunc(remaining):
			var zero V
			e.settle(key, fl, zero, fmt.Errorf("%w: computation exceeded its %s deadline", ErrResolveTimeout, fl.deadline))
		}
	}()
}

// settle concludes a flight exactly once: it removes the registry entry so
// the key can be resolved again, stores successful values in the cache and
// publishes the outcome to every waiter. A computation finishing after its
// deadline finds its flight already settled and its result is dropped.
func (e *Engine[K, V]) settle(key K, fl *flight[V], value V, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if current, ok := e.flights[key]; !ok || current != fl {
		invariant.Raise("engine", "flight_registry_mismatch", "Settled flight was not registered for its key")
	} else {
		delete(e.flights, key)
	}

	if err == nil {
		e.cache.Put(key, value)
		if size := e.cache.Size(); size > e.cache.Capacity() {
			invariant.Raise("engine", "cache_over_capacity", "Cache grew past its capacity", "size", size, "capacity", e.cache.Capacity())
		}
	}

	fl.value = value
	fl.err = err
	close(fl.done)

	metrics.inFlight.Add(context.Background(), -1)
}

// await blocks until the flight settles or the caller's time is up. The wait
// is anchored to the flight's start, so a joiner with a generous deadline
// still gives up when the flight's own deadline passes.
func (e *Engine[K, V]) await(ctx context.Context, fl *flight[V], deadline time.Duration) (Result[V], error) {
	remaining := fl.deadline - e.nowFunc().Sub(fl.startedAt)
	wait := min(remaining, deadline)

	select {
	case <-fl.done:
	case <-e.afterFunc(wait):
		return Result[V]{Outcome: OutcomeTimedOut, CacheSizeAfter: e.cache.Size()},
			fmt.Errorf("%w: no result within %s", ErrResolveTimeout, wait)
	case <-ctx.Done():
		return Result[V]{Outcome: OutcomeTimedOut, CacheSizeAfter: e.cache.Size()},
			fmt.Errorf("%w: %v", ErrResolveTimeout, ctx.Err())
	}

	size := e.cache.Size()
	switch {
	case fl.err == nil:
		return Result[V]{Value: fl.value, Outcome: OutcomeComputed, CacheSizeAfter: size}, nil
	case errors.Is(fl.err, ErrResolveTimeout):
		return Result[V]{Outcome: OutcomeTimedOut, CacheSizeAfter: size}, fl.err
	default:
		return Result[V]{Outcome: OutcomeComputationFailed, CacheSizeAfter: size},
			fmt.Errorf("computation failed: %w", fl.err)
	}
}

// ClearCache empties the cache and returns the size before and after. It
// does not affect in-flight computations, their results enter the emptied
// cache when they complete.
func (e *Engine[K, V]) ClearCache() (previousSize int, newSize int) {
	previousSize = e.cache.Size()
	e.cache.Clear()
	return previousSize, e.cache.Size()
}

func (e *Engine[K, V]) CacheSize() int {
	return e.cache.Size()
}

// InFlight returns the number of computations currently claimed and not yet
// settled.
func (e *Engine[K, V]) InFlight() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return len(e.flights)
}
