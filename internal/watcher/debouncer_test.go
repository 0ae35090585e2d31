package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Aman-CERP/routenav/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type applied struct {
	path string
	kind ChangeKind
}

type recorder struct {
	mu    sync.Mutex
	calls []applied
	fail  map[string]error
}

func (r *recorder) apply(_ context.Context, path string, kind ChangeKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, applied{path, kind})
	return r.fail[path]
}

func (r *recorder) snapshot() []applied {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]applied(nil), r.calls...)
}

func newTestDebouncer(delay time.Duration, r *recorder) *Debouncer {
	return NewDebouncer(Options{Debounce: delay}, r.apply, logging.Discard())
}

func TestDebouncer_AppliesKindsInFixedOrder(t *testing.T) {
	// Given: a debouncer with a long window
	r := &recorder{}
	d := newTestDebouncer(time.Hour, r)
	defer d.Stop()

	// When: kinds for one path arrive out of order and the queue is drained
	d.Add("/ws/A.java", Modified)
	d.Add("/ws/A.java", Created)
	d.Add("/ws/A.java", Deleted)
	d.Add("/ws/A.java", Modified)
	stats := d.Flush(context.Background())

	// Then: each kind runs once, Deleted then Created then Modified
	assert.Equal(t, []applied{
		{"/ws/A.java", Deleted},
		{"/ws/A.java", Created},
		{"/ws/A.java", Modified},
	}, r.snapshot())
	assert.Equal(t, 1, stats.Paths)
	assert.Equal(t, 3, stats.Changes)
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_SlidingWindow(t *testing.T) {
	// Given: a debouncer with a short window
	r := &recorder{}
	d := newTestDebouncer(150*time.Millisecond, r)
	defer d.Stop()

	// When: events keep arriving inside the window
	d.Add("/ws/a", Modified)
	time.Sleep(100 * time.Millisecond)
	d.Add("/ws/b", Created)
	time.Sleep(100 * time.Millisecond)

	// Then: nothing ran yet, because each event restarted the window
	assert.Empty(t, r.snapshot())

	// And: both paths run together once the tree is quiet
	require.Eventually(t, func() bool { return len(r.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []applied{{"/ws/a", Modified}, {"/ws/b", Created}}, r.snapshot())
}

func TestDebouncer_FailureDoesNotAbortDrain(t *testing.T) {
	// Given: an apply function that fails for one path
	r := &recorder{fail: map[string]error{"/ws/a": errors.New("stat failed")}}
	d := newTestDebouncer(time.Hour, r)
	defer d.Stop()

	var got DrainStats
	d.OnDrain = func(s DrainStats) { got = s }

	// When: two paths are drained
	d.Add("/ws/a", Modified)
	d.Add("/ws/b", Modified)
	d.Flush(context.Background())

	// Then: the second path still ran and the failure was counted
	assert.Len(t, r.snapshot(), 2)
	assert.Equal(t, 1, got.Failures)
	assert.Equal(t, 2, got.Paths)
}

func TestDebouncer_MaxPendingDrainsEarly(t *testing.T) {
	// Given: a debouncer that never fires on its own
	r := &recorder{}
	d := NewDebouncer(Options{Debounce: time.Hour, MaxPending: 2}, r.apply, logging.Discard())
	defer d.Stop()

	// When: the queue reaches its limit
	d.Add("/ws/a", Created)
	d.Add("/ws/b", Created)

	// Then: it is drained without waiting for the window
	require.Eventually(t, func() bool { return len(r.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestDebouncer_StopDiscardsPending(t *testing.T) {
	// Given: queued changes
	r := &recorder{}
	d := newTestDebouncer(50*time.Millisecond, r)
	d.Add("/ws/a", Modified)

	// When: the debouncer stops before the window ends
	d.Stop()
	d.Stop()
	time.Sleep(100 * time.Millisecond)

	// Then: nothing is applied and later adds are ignored
	d.Add("/ws/b", Modified)
	assert.Empty(t, r.snapshot())
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_FlushCancelled(t *testing.T) {
	// Given: queued changes and a cancelled context
	r := &recorder{}
	d := newTestDebouncer(time.Hour, r)
	defer d.Stop()
	d.Add("/ws/a", Modified)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: flushing
	stats := d.Flush(ctx)

	// Then: nothing is applied
	assert.Empty(t, r.snapshot())
	assert.Equal(t, 0, stats.Changes)
}

func TestDebouncer_EmptyFlush(t *testing.T) {
	r := &recorder{}
	d := newTestDebouncer(time.Hour, r)
	defer d.Stop()

	assert.Equal(t, DrainStats{}, d.Flush(context.Background()))
}

func TestChangeKind_StringRoundTrip(t *testing.T) {
	for _, k := range []ChangeKind{Deleted, Created, Modified} {
		got, ok := ParseChangeKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseChangeKind("renamed")
	assert.False(t, ok)
	assert.Equal(t, "unknown", ChangeKind(9).String())
}
