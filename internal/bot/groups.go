package bot

import (
	"strings"
	"sync"
)

// groupSet is a concurrent set of ids.
type groupSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func newGroupSet(ids []string) *groupSet {
	s := &groupSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s *groupSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *groupSet) Add(id string) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

func (s *groupSet) Remove(id string) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
}
