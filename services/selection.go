package services

import (
	"sync"

	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
)

// SelectionStore holds the single "currently previewed ticket" slot shared
// by every list, table and detail surface. Exactly one selection exists at
// a time: writing the slot replaces whatever was selected before, there is
// no stacking.
type SelectionStore struct {
	mu      sync.Mutex
	current *models.Ticket
	subs    []*selectionSub
}

type selectionSub struct {
	fn func(*models.Ticket)
}

func NewSelectionStore() *SelectionStore {
	return &SelectionStore{}
}

// Get returns a copy of the current selection, or nil when nothing is
// selected.
func (s *SelectionStore) Get() *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Set replaces the selection and notifies every subscriber with the new
// value. Passing nil clears the slot.
func (s *SelectionStore) Set(ticket *models.Ticket) {
	s.mu.Lock()
	if ticket == nil {
		s.current = nil
	} else {
		copied := *ticket
		s.current = &copied
	}
	value := s.current
	subs := make([]*selectionSub, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	monitoring.TrackSelectionUpdate()
	for _, sub := range subs {
		sub.fn(value)
	}
}

// Subscribe registers fn for every selection change and returns the
// unsubscribe func. Consumers mounted anywhere see writes from anywhere,
// no prop threading involved.
func (s *SelectionStore) Subscribe(fn func(*models.Ticket)) func() {
	sub := &selectionSub{fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	}
}
