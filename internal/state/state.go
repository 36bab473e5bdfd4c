// Package state holds the in-memory collections of the current session behind
// a single reducer-style entry point.
package state

import (
	"sync"

	"github.com/fjod/storefront-sync/internal/domain"
)

// State is the whole in-memory view the UI renders.
type State struct {
	Session   domain.Session     `json:"session"`
	Cart      domain.Cart        `json:"cart"`
	Favorites domain.FavoriteSet `json:"favorites"`
}

func (s State) Clone() State {
	return State{
		Session:   s.Session,
		Cart:      s.Cart.Clone(),
		Favorites: s.Favorites.Clone(),
	}
}

// Listener receives the state after every dispatch. It must not dispatch.
type Listener func(State)

// Store owns the State. Dispatch is the only way to change it.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	next      int
}

func NewStore(initial State) *Store {
	initial.Cart.Recompute()
	return &Store{
		state:     initial.Clone(),
		listeners: make(map[int]Listener),
	}
}

// Dispatch reduces the action into the state, recomputes the derived totals
// and notifies listeners with the resulting state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	next := s.state.Clone()
	action.reduce(&next)
	next.Cart.Recompute()
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next.Clone())
	}
	return next.Clone()
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Read runs fn against the current state without copying it.
// fn must not retain or modify the state.
func (s *Store) Read(fn func(State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.next++
	id := s.next
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
