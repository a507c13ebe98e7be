package viewfetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
)

type result struct {
	val string
	err error
}

// blockingFetch returns fn that blocks until release is closed or its context ends.
func blockingFetch(calls *atomic.Int32, started chan<- struct{}, release <-chan struct{}, val string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		calls.Add(1)
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-release:
			return val, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func async(ctx context.Context, tr *Tracker, view, fp string, fn func(context.Context) (string, error)) <-chan result {
	out := make(chan result, 1)
	go func() {
		v, err := Fetch(ctx, tr, view, fp, fn)
		out <- result{v, err}
	}()
	return out
}

func waitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return result{}
	}
}

func TestFetch_Simple(t *testing.T) {
	tr := NewTracker(zap.NewNop())

	val, err := Fetch(context.Background(), tr, "s1/family-tree", "root=2", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 0, tr.InFlight())
}

func TestFetch_PropagatesError(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	boom := errors.New("backend unavailable")

	_, err := Fetch(context.Background(), tr, "v", "fp", func(ctx context.Context) (string, error) {
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestFetch_IdenticalRequestsShareOneFetch(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingFetch(&calls, started, release, "view-of-2")

	first := async(context.Background(), tr, "v", "root=2", fn)
	<-started

	second := async(context.Background(), tr, "v", "root=2", fn)
	// let the second caller join before releasing
	require.Eventually(t, func() bool { return tr.InFlight() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)

	r1, r2 := waitResult(t, first), waitResult(t, second)
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	assert.Equal(t, "view-of-2", r1.val)
	assert.Equal(t, "view-of-2", r2.val)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_NewerRequestSupersedesOlder(t *testing.T) {
	var supersededViews []string
	var mu sync.Mutex
	tr := NewTracker(zap.NewNop(), WithSupersededHook(func(view string) {
		mu.Lock()
		defer mu.Unlock()
		supersededViews = append(supersededViews, view)
	}))

	var oldCalls atomic.Int32
	started := make(chan struct{}, 1)
	never := make(chan struct{})
	old := async(context.Background(), tr, "v", "root=2", blockingFetch(&oldCalls, started, never, "view-of-2"))
	<-started

	val, err := Fetch(context.Background(), tr, "v", "root=5", func(ctx context.Context) (string, error) {
		return "view-of-5", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "view-of-5", val)

	r := waitResult(t, old)
	assert.ErrorIs(t, r.err, apperrors.ErrSuperseded)

	mu.Lock()
	assert.Equal(t, []string{"v"}, supersededViews)
	mu.Unlock()
}

func TestFetch_DifferentViewsAreIndependent(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	var calls atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	fn := blockingFetch(&calls, started, release, "ok")

	a := async(context.Background(), tr, Key("session-a", "family-tree"), "root=2", fn)
	b := async(context.Background(), tr, Key("session-b", "family-tree"), "root=3", fn)
	<-started
	<-started
	assert.Equal(t, 2, tr.InFlight())
	close(release)

	require.NoError(t, waitResult(t, a).err)
	require.NoError(t, waitResult(t, b).err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_CallerCancellationLeavesSharedFetchRunning(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	fn := blockingFetch(&calls, started, release, "shared")

	ctx, cancel := context.WithCancel(context.Background())
	impatient := async(ctx, tr, "v", "root=2", fn)
	<-started
	patient := async(context.Background(), tr, "v", "root=2", fn)
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, waitResult(t, impatient).err, context.Canceled)

	close(release)
	r := waitResult(t, patient)
	require.NoError(t, r.err)
	assert.Equal(t, "shared", r.val)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_FlightContextKeepsValues(t *testing.T) {
	type ctxKey struct{}
	tr := NewTracker(zap.NewNop())
	ctx := context.WithValue(context.Background(), ctxKey{}, "token")

	val, err := Fetch(ctx, tr, "v", "fp", func(fctx context.Context) (string, error) {
		v, _ := fctx.Value(ctxKey{}).(string)
		return v, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "token", val)
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	never := make(chan struct{})
	pending := async(context.Background(), tr, "v", "root=2", blockingFetch(&calls, started, never, ""))
	<-started

	tr.Cancel("v")
	tr.Cancel("unknown")

	assert.ErrorIs(t, waitResult(t, pending).err, apperrors.ErrSuperseded)
	assert.Equal(t, 0, tr.InFlight())
}

func TestFetch_SequentialRequestsRunAgain(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, err := Fetch(context.Background(), tr, "v", "root=2", fn)
	require.NoError(t, err)
	second, err := Fetch(context.Background(), tr, "v", "root=2", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
