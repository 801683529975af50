package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hakimbdev/items-api/internal/items"
	"github.com/hakimbdev/items-api/internal/watch"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource is an in-memory Source. Load snapshots the contents on entry
// and, when gate is non-nil, blocks until it is closed before returning.
type memSource struct {
	mu    sync.Mutex
	list  []items.Item
	err   error
	gate  chan struct{}
	loads int
}

func (m *memSource) Path() string { return "/virtual/items.json" }

func (m *memSource) Load(ctx context.Context) ([]items.Item, error) {
	m.mu.Lock()
	gate := m.gate
	list := append([]items.Item(nil), m.list...)
	err := m.err
	m.loads++
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (m *memSource) set(list []items.Item, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list, m.err = list, err
}

func (m *memSource) setGate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

func (m *memSource) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// fakeNotifier records subscriptions and lets tests fire changes.
type fakeNotifier struct {
	mu            sync.Mutex
	onChange      func()
	subscribes    int
	unsubscribes  int
	subscribeErr  error
	subscribedFor string
}

func (f *fakeNotifier) Subscribe(path string, onChange func()) (watch.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscribes++
	f.subscribedFor = path
	f.onChange = onChange

	var once sync.Once
	return func() error {
		once.Do(func() {
			f.mu.Lock()
			f.unsubscribes++
			f.onChange = nil
			f.mu.Unlock()
		})
		return nil
	}, nil
}

func (f *fakeNotifier) fire(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	require.NotNil(t, cb, "no active subscription")
	cb()
}

func newTestEngine(t *testing.T, src *memSource, n watch.Notifier) (*Engine, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	e := NewEngine(src, n, WithClock(clock))
	t.Cleanup(func() { _ = e.Stop() })
	return e, clock
}

func TestEngine_FirstMissThenHit(t *testing.T) {
	src := &memSource{list: fiveItems()}
	e, clock := newTestEngine(t, src, &fakeNotifier{})
	ctx := context.Background()
	require.NoError(t, e.Start())

	first, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Zero(t, first.Age)
	assert.Equal(t, 5, first.Summary.Total)

	clock.Advance(250 * time.Millisecond)

	second, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 250*time.Millisecond, second.Age)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, src.loadCount())
}

func TestEngine_LoadErrorPropagates(t *testing.T) {
	src := &memSource{err: errors.New("disk on fire")}
	e, _ := newTestEngine(t, src, &fakeNotifier{})

	_, err := e.Summary(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk on fire")

	_, ok := e.Cache().Get()
	assert.False(t, ok)
}

func TestEngine_StartIsIdempotent(t *testing.T) {
	n := &fakeNotifier{}
	e, _ := newTestEngine(t, &memSource{}, n)

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())

	assert.Equal(t, StateWatching, e.State())
	assert.Equal(t, 1, n.subscribes)
	assert.Equal(t, "/virtual/items.json", n.subscribedFor)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	n := &fakeNotifier{}
	e, _ := newTestEngine(t, &memSource{}, n)

	// never started
	require.NoError(t, e.Stop())

	require.NoError(t, e.Start())
	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())

	assert.Equal(t, StateUninitialized, e.State())
	assert.Equal(t, 1, n.unsubscribes)

	// can be started again after a clean stop
	require.NoError(t, e.Start())
	assert.Equal(t, 2, n.subscribes)
}

func TestEngine_StartFailureDegradesToUncached(t *testing.T) {
	n := &fakeNotifier{subscribeErr: errors.New("permission denied")}
	src := &memSource{list: fiveItems()}
	e, _ := newTestEngine(t, src, n)

	err := e.Start()
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, e.State())

	ctx := context.Background()
	res, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Summary.Total)
	assert.False(t, res.Cached)

	// with no watch nothing could invalidate a cached entry, so none is kept
	src.set(fiveItems()[:3], nil)

	res, err = e.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 3, res.Summary.Total)

	_, ok := e.Cache().Get()
	assert.False(t, ok)
}

func TestEngine_NotStartedNeverCaches(t *testing.T) {
	src := &memSource{list: fiveItems()}
	e, _ := newTestEngine(t, src, &fakeNotifier{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := e.Summary(ctx)
		require.NoError(t, err)
		assert.False(t, res.Cached)
	}
	assert.Equal(t, 3, src.loadCount())
}

func TestEngine_StopClearsCache(t *testing.T) {
	src := &memSource{list: fiveItems()}
	e, _ := newTestEngine(t, src, &fakeNotifier{})
	ctx := context.Background()

	require.NoError(t, e.Start())
	_, err := e.Summary(ctx)
	require.NoError(t, err)
	_, ok := e.Cache().Get()
	require.True(t, ok)

	require.NoError(t, e.Stop())

	_, ok = e.Cache().Get()
	assert.False(t, ok)

	src.set(fiveItems()[:1], nil)
	res, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.Summary.Total)
}

func TestEngine_NilNotifier(t *testing.T) {
	e, _ := newTestEngine(t, &memSource{}, nil)

	assert.ErrorIs(t, e.Start(), ErrNoNotifier)
	assert.NoError(t, e.Stop())
}

func TestEngine_ChangeInvalidatesAndRefreshes(t *testing.T) {
	src := &memSource{list: fiveItems()}
	n := &fakeNotifier{}
	e, _ := newTestEngine(t, src, n)
	ctx := context.Background()

	require.NoError(t, e.Start())
	_, err := e.Summary(ctx)
	require.NoError(t, err)

	// hold the refresh so the empty window can be observed
	gate := make(chan struct{})
	src.setGate(gate)
	src.set(append(fiveItems(), items.Item{ID: 6, Category: "Toys", Price: 10}), nil)

	n.fire(t)

	_, ok := e.Cache().Get()
	assert.False(t, ok, "cache must be empty right after a change")

	src.setGate(nil)
	close(gate)

	require.Eventually(t, func() bool {
		_, ok := e.Cache().Get()
		return ok
	}, time.Second, 5*time.Millisecond)

	res, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 6, res.Summary.Total)
}

func TestEngine_RefreshFailureLeavesCacheEmpty(t *testing.T) {
	src := &memSource{list: fiveItems()}
	n := &fakeNotifier{}
	e, _ := newTestEngine(t, src, n)
	ctx := context.Background()

	require.NoError(t, e.Start())
	_, err := e.Summary(ctx)
	require.NoError(t, err)

	src.set(nil, errors.New("unexpected end of JSON input"))
	n.fire(t)

	// the failed refresh has loaded once and never stores anything
	require.Eventually(t, func() bool { return src.loadCount() == 2 }, time.Second, 5*time.Millisecond)
	_, ok := e.Cache().Get()
	assert.False(t, ok)

	// the next request surfaces the error itself
	_, err = e.Summary(ctx)
	assert.Error(t, err)

	// and recovers once the file is readable again
	src.set(fiveItems(), nil)
	res, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached)

	res, err = e.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestEngine_StaleRequestResultIsDropped(t *testing.T) {
	src := &memSource{list: fiveItems()}
	n := &fakeNotifier{}
	e, _ := newTestEngine(t, src, n)
	require.NoError(t, e.Start())

	gate := make(chan struct{})
	src.setGate(gate)

	done := make(chan Result, 1)
	go func() {
		res, _ := e.Summary(context.Background())
		done <- res
	}()

	// wait until the request is blocked inside Load, then change the file
	time.Sleep(20 * time.Millisecond)
	src.set(fiveItems()[:2], nil)
	n.fire(t)
	src.setGate(nil)
	close(gate)

	res := <-done
	assert.False(t, res.Cached)

	var entry Entry
	require.Eventually(t, func() bool {
		var ok bool
		entry, ok = e.Cache().Get()
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, entry.Value.Total, "refresh result wins over the older request")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "watching", StateWatching.String())
}
