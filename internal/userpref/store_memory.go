package userpref

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]Preference)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (Preference, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[userID]
	if !ok {
		return Preference{}, false, nil
	}
	return p.clone(), true, nil
}

func (m *MemoryStore) Modify(_ context.Context, userID string, seed Preference, fn func(*Preference)) (Preference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, found := m.prefs[userID]
	if found {
		p = p.clone()
	} else {
		p = seed.clone()
		p.UserID = userID
	}
	if fn != nil {
		fn(&p)
	}
	m.prefs[userID] = p.clone()
	return p, !found, nil
}
