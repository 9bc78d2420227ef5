// Package session maps composite session keys to live history policy
// instances for the lifetime of the process.
package session

import (
	"fmt"
	"sync"

	"github.com/scttfrdmn/chatmem/history"
)

// Key identifies one history instance: a session id plus the policy kind
// and its parameters. The same session id under a different kind or window
// selects a distinct, independently empty history; switching technique
// mid-conversation starts fresh rather than converting the old state.
type Key struct {
	SessionID string       `json:"session_id"`
	Kind      history.Kind `json:"kind"`
	// Window is the window parameter for the windowed kinds; zero for the
	// others.
	Window int `json:"window,omitempty"`
}

// String renders the key in session_kind_window form.
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%d", k.SessionID, k.Kind, k.Window)
}

// Store is a process-wide registry of history instances.
//
// Entries are created on first access and never evicted; unbounded growth
// across many distinct sessions is an accepted scope limitation. Clear
// empties an entry in place but keeps it registered.
type Store struct {
	mu      sync.Mutex
	entries map[Key]history.History
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]history.History),
	}
}

// Get returns the history registered under key without creating one.
func (s *Store) Get(key Key) (history.History, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.entries[key]
	return h, ok
}

// GetOrCreate returns the history registered under key, constructing it
// via factory on first access. Creation is atomic: when two callers race
// on the same key there is a single winner and both observe its instance.
func (s *Store) GetOrCreate(key Key, factory func() (history.History, error)) (history.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.entries[key]; ok {
		return h, nil
	}
	h, err := factory()
	if err != nil {
		return nil, err
	}
	s.entries[key] = h
	return h, nil
}

// Clear empties the history registered under key, if any. The entry stays
// registered; a missing key is a no-op.
func (s *Store) Clear(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.entries[key]; ok {
		h.Clear()
	}
}

// Len returns the number of registered histories.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
