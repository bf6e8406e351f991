package holding

import (
	"errors"
	"sync"

	"github.com/samber/lo"
)

// ErrUnknownAsset is returned when toggling an id that was not discovered.
var ErrUnknownAsset = errors.New("asset not in current holdings")

// SelectionSet records which discovered holdings the user wants converted.
type SelectionSet struct {
	mu       sync.RWMutex
	order    []string
	selected map[string]bool
}

// NewSelectionSet selects every holding by default.
func NewSelectionSet(holdings []Holding) *SelectionSet {
	s := &SelectionSet{
		order:    lo.Map(holdings, func(h Holding, _ int) string { return h.AssetID }),
		selected: make(map[string]bool, len(holdings)),
	}
	for _, id := range s.order {
		s.selected[id] = true
	}
	return s
}

// Toggle flips the selection state of id and returns the new state.
func (s *SelectionSet) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.selected[id]
	if !ok {
		return false, ErrUnknownAsset
	}
	s.selected[id] = !cur
	return !cur, nil
}

// Set forces the selection state of id.
func (s *SelectionSet) Set(id string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; !ok {
		return ErrUnknownAsset
	}
	s.selected[id] = on
	return nil
}

// IsSelected reports the state of id; unknown ids are not selected.
func (s *SelectionSet) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected[id]
}

// Len returns the number of ids tracked (selected or not).
func (s *SelectionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns an independent copy of the selection map.
func (s *SelectionSet) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.selected))
	for k, v := range s.selected {
		out[k] = v
	}
	return out
}

// Selected returns the subset of holdings marked in snapshot, preserving their order.
func Selected(holdings []Holding, snapshot map[string]bool) []Holding {
	return lo.Filter(holdings, func(h Holding, _ int) bool { return snapshot[h.AssetID] })
}
