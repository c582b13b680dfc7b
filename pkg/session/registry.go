// Package session tracks transient per-user conversation state.
//
// A Registry holds at most one session per user. Each session may own one
// timer. All mutation happens under the registry lock, and Take is the only
// way a session ends normally: whichever caller (a user reply or a timer)
// takes the session first gets its state, every later caller gets nothing.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when the user has no session, or the handle
// refers to one that has since been replaced or ended.
var ErrNoSession = errors.New("session: no active session")

// Handle identifies one incarnation of a user's session. Handles passed to
// timer callbacks also pin the timer that fired, so a timer that lost a
// race with a re-arm cannot end the session.
type Handle struct {
	UserID int64
	gen    uint64
	arm    uint64
}

type entry[T any] struct {
	gen   uint64
	arm   uint64
	state T
	timer *time.Timer
}

// Registry maps users to sessions holding state of type T.
type Registry[T any] struct {
	mu       sync.Mutex
	sessions map[int64]*entry[T]
	nextGen  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{sessions: make(map[int64]*entry[T])}
}

// Begin starts a session for user, replacing (and disarming) any existing one.
// It reports whether a previous session was replaced.
func (r *Registry[T]) Begin(user int64, state T) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, replaced := r.sessions[user]
	if replaced {
		stop(old)
	}
	r.nextGen++
	r.sessions[user] = &entry[T]{gen: r.nextGen, state: state}
	return Handle{UserID: user, gen: r.nextGen}, replaced
}

// Get returns a copy of the user's state.
func (r *Registry[T]) Get(user int64) (T, Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[user]
	if !ok {
		var zero T
		return zero, Handle{}, false
	}
	return e.state, Handle{UserID: user, gen: e.gen}, true
}

// Active reports whether user has a session.
func (r *Registry[T]) Active(user int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[user]
	return ok
}

// Update runs fn on the user's state under the registry lock. If fn returns
// an error the state is left unchanged.
func (r *Registry[T]) Update(user int64, fn func(state *T) error) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[user]
	if !ok {
		return Handle{}, ErrNoSession
	}
	next := e.state
	if err := fn(&next); err != nil {
		return Handle{}, err
	}
	e.state = next
	return Handle{UserID: user, gen: e.gen}, nil
}

// Arm (re)starts the session's timer. When it fires, onFire receives a
// handle bound to this arming; passing it to Take fails if the session was
// re-armed or ended in the meantime. Arm fails if h is stale.
func (r *Registry[T]) Arm(h Handle, d time.Duration, onFire func(Handle)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[h.UserID]
	if !ok || e.gen != h.gen {
		return ErrNoSession
	}
	stop(e)
	e.arm++
	fired := Handle{UserID: h.UserID, gen: e.gen, arm: e.arm}
	e.timer = time.AfterFunc(d, func() { onFire(fired) })
	return nil
}

// Take removes the session identified by h and returns its final state.
// It is the single arbitration point between competing finishers.
func (r *Registry[T]) Take(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	e, ok := r.sessions[h.UserID]
	if !ok || e.gen != h.gen {
		return zero, false
	}
	if h.arm != 0 && e.arm != h.arm {
		return zero, false
	}
	delete(r.sessions, h.UserID)
	stop(e)
	return e.state, true
}

// Remove ends the user's session whatever its incarnation.
func (r *Registry[T]) Remove(user int64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[user]
	if !ok {
		var zero T
		return zero, false
	}
	delete(r.sessions, user)
	stop(e)
	return e.state, true
}

// Len returns the number of active sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close disarms every timer and forgets all sessions.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for user, e := range r.sessions {
		stop(e)
		delete(r.sessions, user)
	}
}

func stop[T any](e *entry[T]) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
