package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hakimbdev/items-api/internal/items"
	"github.com/hakimbdev/items-api/internal/metrics"
	"github.com/hakimbdev/items-api/internal/watch"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Source supplies the item list the summary is computed from.
type Source interface {
	Load(ctx context.Context) ([]items.Item, error)
	Path() string
}

// State is the lifecycle state of the change watch.
type State int

const (
	StateUninitialized State = iota
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	default:
		return "uninitialized"
	}
}

// Result is a summary plus how it was obtained.
type Result struct {
	Summary Summary
	Cached  bool
	Age     time.Duration // zero unless Cached
}

// Engine serves the summary from its cache and keeps the cache consistent
// with the items file by invalidating it on every change notification.
type Engine struct {
	source   Source
	notifier watch.Notifier
	cache    *Cache
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	unsubscribe watch.Unsubscribe

	refreshes sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for cache timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.cache = NewCache(clock) }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine over source. notifier may be nil, in which
// case Start always fails and every request recomputes.
func NewEngine(source Source, notifier watch.Notifier, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		notifier: notifier,
		cache:    NewCache(clockwork.NewRealClock()),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrNoNotifier is returned by Start when the engine has no notifier.
var ErrNoNotifier = errors.New("no change notifier configured")

// Start subscribes to changes of the source file. Calling Start while
// already watching does nothing. On error the engine stays usable without
// caching being kept fresh; the caller decides how to report it.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateWatching {
		return nil
	}
	if e.notifier == nil {
		return ErrNoNotifier
	}

	unsubscribe, err := e.notifier.Subscribe(e.source.Path(), e.handleChange)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", e.source.Path(), err)
	}

	e.unsubscribe = unsubscribe
	e.state = StateWatching
	e.log.Info().Str("path", e.source.Path()).Msg("stats: watching items file")
	return nil
}

// Stop releases the watch and waits for in-flight refreshes. It is safe to
// call on an engine that was never started, and more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateWatching {
		return nil
	}

	// no callback runs after unsubscribe returns, so Wait cannot race Add
	err := e.unsubscribe()
	e.refreshes.Wait()

	// nothing would invalidate an entry kept past this point
	e.cache.Invalidate()

	e.unsubscribe = nil
	e.state = StateUninitialized
	e.log.Info().Msg("stats: stopped watching items file")

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// State reports whether the engine is watching.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cache exposes the underlying cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Summary returns the cached summary if present, otherwise recomputes it
// from the source. The result is cached only while watching; without a
// watch every request recomputes. Load errors are returned.
func (e *Engine) Summary(ctx context.Context) (Result, error) {
	if entry, ok := e.cache.Get(); ok {
		metrics.StatsCacheHits.Inc()
		return Result{Summary: entry.Value, Cached: true, Age: e.cache.Age(entry)}, nil
	}
	metrics.StatsCacheMisses.Inc()

	gen := e.cache.Generation()
	summary, err := e.compute(ctx, metrics.TriggerRequest)
	if err != nil {
		return Result{}, err
	}
	e.mu.Lock()
	if e.state == StateWatching {
		e.cache.SetIfCurrent(gen, summary)
	}
	e.mu.Unlock()

	return Result{Summary: summary}, nil
}

// handleChange runs on the notifier goroutine.
func (e *Engine) handleChange() {
	e.cache.Invalidate()
	metrics.StatsInvalidations.Inc()

	gen := e.cache.Generation()
	e.refreshes.Add(1)
	go func() {
		defer e.refreshes.Done()
		e.refresh(gen)
	}()
}

func (e *Engine) refresh(gen uint64) {
	summary, err := e.compute(context.Background(), metrics.TriggerWatch)
	if err != nil {
		metrics.StatsRefreshFailures.Inc()
		e.log.Warn().Err(err).Msg("stats: background refresh failed, cache left empty")
		return
	}

	if e.cache.SetIfCurrent(gen, summary) {
		e.log.Debug().Int("total", summary.Total).Msg("stats: cache refreshed")
	}
}

func (e *Engine) compute(ctx context.Context, trigger string) (Summary, error) {
	start := time.Now()
	list, err := e.source.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load items: %w", err)
	}

	summary := Compute(list)
	metrics.StatsComputations.WithLabelValues(trigger).Inc()
	metrics.StatsComputeDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	return summary, nil
}
