// Package dashboard holds the per-session view state of the dashboard pages.
//
// A view owns a filter, the last response applied to it and the fetches it
// has started. Every filter change starts a new fetch; earlier fetches are
// left running and their responses are applied in the order they resolve,
// so the response that completes last wins.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

// ErrViewClosed is returned by setters on a closed view.
var ErrViewClosed = errors.New("view closed")

// Deps are the collaborators shared by every view.
type Deps struct {
	Source      domain.MeasurementSource
	MarkerDelay time.Duration
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// view tracks in-flight fetches, subscribers and lifecycle. Embedders guard
// their own state with mu as well.
type view struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	inflight  int
	idle      chan struct{} // closed while nothing is in flight
	listeners map[int]func()
	nextID    int
	closed    bool
}

func (v *view) init() {
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.idle = make(chan struct{})
	close(v.idle)
	v.listeners = make(map[int]func())
}

// beginLocked records a fetch start. Caller holds mu.
func (v *view) beginLocked() {
	if v.inflight == 0 {
		v.idle = make(chan struct{})
	}
	v.inflight++
}

// endLocked records a fetch completion. Caller holds mu.
func (v *view) endLocked() {
	v.inflight--
	if v.inflight == 0 {
		close(v.idle)
	}
}

// Subscribe registers fn to be called after every state change. The returned
// function removes the subscription.
func (v *view) Subscribe(fn func()) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

// notify calls subscribers outside the lock.
func (v *view) notify() {
	v.mu.Lock()
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// WaitIdle blocks until no fetch is in flight or ctx is done.
func (v *view) WaitIdle(ctx context.Context) error {
	v.mu.Lock()
	idle := v.idle
	v.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown marks the view closed and cancels outstanding fetches. It reports
// false if the view was already closed.
func (v *view) shutdown() bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	return true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
