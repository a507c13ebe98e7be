// Package viewfetch serializes data fetches per view with last-write-wins semantics.
//
// Each view (for example one visitor's family tree page) has at most one fetch
// in flight. Identical concurrent requests share that fetch. A request with
// different parameters cancels the fetch in flight, and everyone still waiting
// on the cancelled fetch receives apperrors.ErrSuperseded, so a slow response
// for an old root can never overwrite the view of a newer one.
package viewfetch

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
)

// Key builds a view key scoped to an owner, typically a session id.
func Key(owner, view string) string {
	return owner + "/" + view
}

type flight struct {
	view        string
	fingerprint string
	generation  uint64
	ctx         context.Context
	cancel      context.CancelFunc
	run         func() (any, error)
	superseded  bool // guarded by Tracker.mu
}

// Tracker tracks the fetch in flight for every view.
type Tracker struct {
	mu         sync.Mutex
	group      singleflight.Group
	flights    map[string]*flight
	generation uint64

	onSuperseded func(view string)
	logger       *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSupersededHook registers a callback run each time a fetch is replaced.
func WithSupersededHook(fn func(view string)) Option {
	return func(t *Tracker) {
		t.onSuperseded = fn
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		flights:      make(map[string]*flight),
		onSuperseded: func(string) {},
		logger:       logger.Named("viewfetch"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fetch runs fn for view unless an identical request (same fingerprint) is
// already in flight, in which case it waits for that one.
//
// fn receives a context detached from the caller: it is cancelled only when a
// newer request for the view supersedes it. If the caller's ctx ends first,
// Fetch returns ctx.Err() and the shared fetch keeps running for the others.
func Fetch[T any](ctx context.Context, t *Tracker, view, fingerprint string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	f, ch := t.begin(ctx, view, fingerprint, func(fctx context.Context) (any, error) {
		return fn(fctx)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if t.wasSuperseded(f) {
			return zero, apperrors.ErrSuperseded
		}
		if res.Err != nil {
			return zero, res.Err
		}
		val, _ := res.Val.(T)
		return val, nil
	}
}

// begin joins or starts the flight for view. The singleflight call is
// registered while holding the lock: a flight still in the map has not
// finished, so joining it never runs fn a second time.
func (t *Tracker) begin(ctx context.Context, view, fingerprint string, fn func(context.Context) (any, error)) (*flight, <-chan singleflight.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.flights[view]; ok {
		if cur.fingerprint == fingerprint {
			t.logger.Debug("Joining fetch in flight",
				zap.String("view", view),
				zap.String("fingerprint", fingerprint))
			return cur, t.group.DoChan(cur.key(), cur.run)
		}
		t.supersedeLocked(cur)
	}

	t.generation++
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{
		view:        view,
		fingerprint: fingerprint,
		generation:  t.generation,
		ctx:         fctx,
		cancel:      cancel,
	}
	f.run = func() (any, error) {
		defer t.finish(f)
		return fn(f.ctx)
	}
	t.flights[view] = f
	return f, t.group.DoChan(f.key(), f.run)
}

func (f *flight) key() string {
	return f.view + "\x00" + f.fingerprint + "\x00" + strconv.FormatUint(f.generation, 10)
}

func (t *Tracker) supersedeLocked(f *flight) {
	f.superseded = true
	f.cancel()
	delete(t.flights, f.view)
	t.logger.Debug("Superseding fetch in flight",
		zap.String("view", f.view),
		zap.String("fingerprint", f.fingerprint))
	t.onSuperseded(f.view)
}

func (t *Tracker) finish(f *flight) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flights[f.view] == f {
		delete(t.flights, f.view)
	}
	f.cancel()
}

func (t *Tracker) wasSuperseded(f *flight) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return f.superseded
}

// Cancel supersedes the fetch in flight for view, if any.
func (t *Tracker) Cancel(view string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.flights[view]; ok {
		t.supersedeLocked(cur)
	}
}

// InFlight returns the number of views with a fetch in flight.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flights)
}
