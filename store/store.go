// Package store holds the server's bounded, in-memory collection of
// admitted messages, keyed by InitialPow.
package store

import (
	"sync"
	"time"

	"github.com/p2pim/p2pim/message"
)

// Store is a map from InitialPow to the message that produced it. Because
// InitialPow is hash-derived, a collision is treated as a duplicate and the
// later writer overwrites the earlier one.
//
// Store is safe for concurrent use; callers that need admission decisions
// to be atomic with a Worst/Insert/Remove sequence must hold their own
// higher-level lock around the whole sequence (see server.Server).
type Store struct {
	mu       sync.RWMutex
	messages map[uint32]*message.Message
	order    []uint32 // insertion order of the keys currently in messages
}

// New returns an empty store.
func New() *Store {
	return &Store{messages: make(map[uint32]*message.Message)}
}

// Insert adds or overwrites the message keyed by its InitialPow. A colliding
// key keeps its original position in insertion order.
func (s *Store) Insert(m *message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.messages[m.InitialPow]; !exists {
		s.order = append(s.order, m.InitialPow)
	}
	s.messages[m.InitialPow] = m
}

// Remove deletes the message keyed by initialPow, if present.
func (s *Store) Remove(initialPow uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.messages[initialPow]; !exists {
		return
	}
	delete(s.messages, initialPow)
	for i, key := range s.order {
		if key == initialPow {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// UsedBytes sums the wire-frame length of every stored message.
func (s *Store) UsedBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	used := 0
	for _, m := range s.messages {
		used += len(m.String())
	}
	return used
}

// Worst recomputes CurrentPow for every stored message against now, then
// returns the (InitialPow, CurrentPow) pair with the largest CurrentPow —
// the weakest resident. ok is false when the store is empty.
func (s *Store) Worst(now time.Time) (initialPow uint32, currentPow uint32, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, m := range s.messages {
		m.UpdatePow(now)
		if !ok || m.CurrentPow > currentPow {
			initialPow, currentPow, ok = key, m.CurrentPow, true
		}
	}
	return initialPow, currentPow, ok
}

// Iter returns a snapshot slice of every stored message in insertion order.
func (s *Store) Iter() []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*message.Message, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.messages[key])
	}
	return out
}
