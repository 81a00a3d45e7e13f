// Package ack correlates asynchronous device notifications with the
// request that is waiting for them.
//
// A Registry holds at most one live Waiter per key. Arming a key that
// already has a live waiter cancels the old one with ErrSuperseded, so a
// late notification can only ever complete the most recent request. Callers
// must Arm before issuing the write that triggers the notification.
package ack

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is delivered to a waiter replaced by a newer Arm on the same key
var ErrSuperseded = errors.New("ack: superseded by a newer waiter")

type outcome[V any] struct {
	value V
	err   error
}

// Waiter is a single-assignment completion handle
type Waiter[K comparable, V any] struct {
	key  K
	reg  *Registry[K, V]
	ch   chan outcome[V]
	once sync.Once
}

func (w *Waiter[K, V]) complete(v V, err error) bool {
	done := false
	w.once.Do(func() {
		w.ch <- outcome[V]{value: v, err: err}
		done = true
	})
	return done
}

// Key returns the key the waiter was armed for
func (w *Waiter[K, V]) Key() K { return w.key }

// Wait blocks until the waiter is resolved, superseded, or ctx is done.
// On ctx expiry the waiter removes itself from the registry (if it is still
// the live entry) and returns ctx.Err().
func (w *Waiter[K, V]) Wait(ctx context.Context) (V, error) {
	select {
	case out := <-w.ch:
		return out.value, out.err
	case <-ctx.Done():
		w.reg.discard(w)
		// A resolution may have raced the deadline
		select {
		case out := <-w.ch:
			return out.value, out.err
		default:
		}
		var zero V
		return zero, ctx.Err()
	}
}

// Cancel completes the waiter with err and removes it if it is still live.
// Used when the request that would have triggered the notification failed.
func (w *Waiter[K, V]) Cancel(err error) {
	w.reg.discard(w)
	var zero V
	w.complete(zero, err)
}

// Registry maps keys to their live waiter
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	waiters map[K]*Waiter[K, V]
}

// NewRegistry creates an empty registry
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{waiters: make(map[K]*Waiter[K, V])}
}

// Arm registers a new waiter for key, cancelling any live one with ErrSuperseded
func (r *Registry[K, V]) Arm(key K) *Waiter[K, V] {
	w := &Waiter[K, V]{key: key, reg: r, ch: make(chan outcome[V], 1)}

	r.mu.Lock()
	old := r.waiters[key]
	r.waiters[key] = w
	r.mu.Unlock()

	if old != nil {
		var zero V
		old.complete(zero, ErrSuperseded)
	}
	return w
}

// Resolve pops the live waiter for key and completes it with v.
// It returns false when nothing was armed for key. Never blocks.
func (r *Registry[K, V]) Resolve(key K, v V) bool {
	r.mu.Lock()
	w, ok := r.waiters[key]
	if ok {
		delete(r.waiters, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	return w.complete(v, nil)
}

// Pending reports whether key has a live waiter
func (r *Registry[K, V]) Pending(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.waiters[key]
	return ok
}

// Len returns the number of live waiters
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// CancelAll completes every live waiter with err and empties the registry
func (r *Registry[K, V]) CancelAll(err error) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = make(map[K]*Waiter[K, V])
	r.mu.Unlock()

	var zero V
	for _, w := range waiters {
		w.complete(zero, err)
	}
}

func (r *Registry[K, V]) discard(w *Waiter[K, V]) {
	r.mu.Lock()
	if r.waiters[w.key] == w {
		delete(r.waiters, w.key)
	}
	r.mu.Unlock()
}
