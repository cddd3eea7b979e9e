// Package memory provides an in-process mod state store for tools and tests
// that run without a database.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
)

// ErrModStateNotFound is returned when no state is recorded for a mod.
var ErrModStateNotFound = errors.New("mod state not found")

// ModStateStore keeps mod state in a map. It is safe for concurrent use.
type ModStateStore struct {
	mu     sync.RWMutex
	states map[string]mod.State
}

// NewModStateStore returns an empty store.
func NewModStateStore() *ModStateStore {
	return &ModStateStore{states: make(map[string]mod.State)}
}

// Disabled returns the ids of every disabled mod.
func (s *ModStateStore) Disabled(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool)
	for id, st := range s.states {
		if st.Disabled {
			out[id] = true
		}
	}
	return out, nil
}

// Save inserts or replaces the state of st.ModID.
func (s *ModStateStore) Save(_ context.Context, st mod.State) error {
	if st.ModID == "" {
		return errors.New("saving mod state: mod id must not be empty")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.states[st.ModID] = st
	s.mu.Unlock()
	return nil
}

// Get returns the recorded state of modID.
func (s *ModStateStore) Get(_ context.Context, modID string) (mod.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[modID]
	if !ok {
		return mod.State{}, ErrModStateNotFound
	}
	return st, nil
}

// List returns every recorded state ordered by mod id.
func (s *ModStateStore) List(_ context.Context) ([]mod.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mod.State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b mod.State) int {
		switch {
		case a.ModID < b.ModID:
			return -1
		case a.ModID > b.ModID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Enable clears the disabled flag of modID.
func (s *ModStateStore) Enable(_ context.Context, modID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[modID]
	if !ok {
		return ErrModStateNotFound
	}
	st.Disabled = false
	st.Reason = ""
	st.UpdatedAt = time.Now().UTC()
	s.states[modID] = st
	return nil
}
