package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sadopc/innerglow/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource counts loads and lets tests trigger change notices.
type fakeSource struct {
	mu       sync.Mutex
	loads    atomic.Int32
	records  map[string]int
	fail     error
	listener func(string)

	// when gate is set, loads signal entered and wait for gate to close
	gate    chan struct{}
	entered chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{records: make(map[string]int)}
}

func (f *fakeSource) Snapshot(ctx context.Context, owner string) (store.Snapshot, error) {
	f.loads.Add(1)
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return store.Snapshot{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return store.Snapshot{}, f.fail
	}
	snap := store.Snapshot{OwnerID: owner}
	for i := 0; i < f.records[owner]; i++ {
		snap.Text = append(snap.Text, store.JournalEntry{OwnerID: owner})
	}
	return snap, nil
}

func (f *fakeSource) OnChange(fn func(string)) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

// add simulates a write for owner.
func (f *fakeSource) add(owner string) {
	f.mu.Lock()
	f.records[owner]++
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(owner)
	}
}

// block makes later loads wait until the returned release is called.
func (f *fakeSource) block() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.gate, f.entered = gate, ch
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		f.gate, f.entered = nil, nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeSource) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func next(t *testing.T, sub *Subscription) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "updates closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}

func waitFor(t *testing.T, sub *Subscription, records int) store.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-sub.Updates():
			if len(snap.Text) == records {
				return snap
			}
		case <-deadline:
			t.Fatalf("never saw a snapshot with %d records", records)
		}
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	src := newFakeSource()
	src.records["u1"] = 2
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, err := h.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	snap := next(t, sub)
	assert.Equal(t, "u1", snap.OwnerID)
	assert.Len(t, snap.Text, 2)
}

func TestSubscribeRequiresUser(t *testing.T) {
	h := New(newFakeSource(), time.Minute, nil)
	defer h.Close()
	_, err := h.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSubscribersShareOneLoad(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	a, err := h.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	next(t, a)

	b, err := h.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	next(t, b)

	assert.Equal(t, int32(1), src.loads.Load())
	assert.Equal(t, 2, h.Subscribers("u1"))
}

func TestChangeFansOutFullSnapshot(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	a, _ := h.Subscribe(context.Background(), "u1")
	b, _ := h.Subscribe(context.Background(), "u1")
	other, _ := h.Subscribe(context.Background(), "u2")
	next(t, a)
	next(t, b)
	next(t, other)

	src.add("u1")
	assert.Len(t, waitFor(t, a, 1).Text, 1)
	assert.Len(t, waitFor(t, b, 1).Text, 1)

	select {
	case <-other.Updates():
		t.Fatal("other owner should not be reloaded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberSeesOnlyLatest(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)

	for i := 0; i < 5; i++ {
		src.add("u1")
	}
	snap := waitFor(t, sub, 5)
	assert.Len(t, snap.Text, 5)
	assert.LessOrEqual(t, int(src.loads.Load()), 6, "bursts coalesce")
	assert.LessOrEqual(t, len(sub.Updates()), 1)
}

func TestCloseIsIdempotentAndClosesUpdates(t *testing.T) {
	h := New(newFakeSource(), time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)
	sub.Close()
	sub.Close()

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers("u1"))
}

func TestResubscribeWithinGraceUsesCache(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)
	sub.Close()

	again, _ := h.Subscribe(context.Background(), "u1")
	next(t, again)
	assert.Equal(t, int32(1), src.loads.Load())
}

func TestChangeWhileUnsubscribedDropsCache(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)
	sub.Close()

	src.add("u1")

	again, _ := h.Subscribe(context.Background(), "u1")
	snap := next(t, again)
	assert.Len(t, snap.Text, 1)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestLeaveDuringReloadDoesNotCacheStaleSnapshot(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	assert.Empty(t, next(t, sub).Text)

	entered, release := src.block()
	src.add("u1")
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never started")
	}
	sub.Close()
	release()

	again, err := h.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer again.Close()
	assert.Len(t, next(t, again).Text, 1)
}

func TestLeaveWithPendingChangeDoesNotCache(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)

	h.mu.Lock()
	h.topics["u1"].gen++
	h.mu.Unlock()
	sub.Close()

	_, cached := h.cache.Get("u1")
	assert.False(t, cached)
}

func TestLoadErrorKeepsPreviousSnapshot(t *testing.T) {
	src := newFakeSource()
	h := New(src, time.Minute, nil)
	defer h.Close()

	sub, _ := h.Subscribe(context.Background(), "u1")
	next(t, sub)

	src.setFail(errors.New("disk gone"))
	src.add("u1")

	select {
	case <-sub.Updates():
		t.Fatal("failed reload must not publish")
	case <-time.After(50 * time.Millisecond):
	}

	src.setFail(nil)
	src.add("u1")
	assert.Len(t, waitFor(t, sub, 2).Text, 2)
}

func TestContextCancelClosesSubscription(t *testing.T) {
	h := New(newFakeSource(), time.Minute, nil)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := h.Subscribe(ctx, "u1")
	next(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed by context")
	}
}

func TestHubCloseTearsDownEverything(t *testing.T) {
	h := New(newFakeSource(), time.Minute, nil)
	a, _ := h.Subscribe(context.Background(), "u1")
	b, _ := h.Subscribe(context.Background(), "u2")
	h.Close()
	h.Close()

	for _, sub := range []*Subscription{a, b} {
		for range sub.Updates() {
		}
	}
	_, err := h.Subscribe(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubWithRealStore(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()
	u, err := s.CreateUser("Ada", "L", "ada@example.com", "h")
	require.NoError(t, err)

	h := New(s, time.Minute, nil)
	defer h.Close()

	sub, err := h.Subscribe(context.Background(), u.ID)
	require.NoError(t, err)
	next(t, sub)

	_, err = s.CreateVoiceEntry(u.ID, store.NewVoiceEntry{Title: "v", Emotion: "calm"})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-sub.Updates():
			if len(snap.Voice) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("voice entry never arrived")
		}
	}
}
