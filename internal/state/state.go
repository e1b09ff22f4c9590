// Package state provides State, an observable value with synchronous change
// notification.
package state

import (
	"sync"
)

// State owns a value and the listeners interested in it.
//
// Listeners are called synchronously, in subscription order, after every
// Set or Update, and once with the current value on Subscribe. Listeners run
// outside the lock and may read the state, but must not mutate it.
type State[T any] struct {
	mu        sync.RWMutex
	value     T
	listeners []listener[T]
	nextID    int
	notifyMu  sync.Mutex
}

type listener[T any] struct {
	id int
	fn func(T)
}

// New returns a State holding initial.
func New[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies listeners.
func (s *State[T]) Set(v T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.value = v
	listeners := s.snapshot()
	s.mu.Unlock()

	notify(listeners, v)
}

// Update replaces the value with fn(current) and notifies listeners. fn runs
// under the write lock and must not call back into s.
func (s *State[T]) Update(fn func(T) T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.value = fn(s.value)
	v := s.value
	listeners := s.snapshot()
	s.mu.Unlock()

	notify(listeners, v)
}

// Subscribe registers fn, calls it with the current value and returns a
// function removing the subscription.
func (s *State[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener[T]{id: id, fn: fn})
	v := s.value
	s.mu.Unlock()

	fn(v)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *State[T]) snapshot() []listener[T] {
	out := make([]listener[T], len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify[T any](listeners []listener[T], v T) {
	for _, l := range listeners {
		l.fn(v)
	}
}
