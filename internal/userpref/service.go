package userpref

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
)

// Service serializes reads and read-modify-write updates per user id. Within one process a
// keyed mutex queues callers; across processes the store's Modify provides the guarantee.
type Service struct {
	store    Store
	defaults Preference

	locksMu sync.Mutex
	locks   map[string]*userLock
}

// userLock is dropped from the map when its last holder or waiter releases it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

type ServiceOption func(*Service)

// WithDefaults changes the record created for unknown users.
func WithDefaults(servers []string, active string) ServiceOption {
	return func(s *Service) {
		if list := dedupe(servers); len(list) > 0 {
			s.defaults.Servers = list
		}
		if active = strings.TrimSpace(active); active != "" {
			s.defaults.ActiveServer = active
		}
	}
}

func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{store: store, defaults: Default(""), locks: make(map[string]*userLock)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(userID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

// Get returns the user's preference, creating and persisting the default record on first use.
func (s *Service) Get(ctx context.Context, userID string) (Preference, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Preference{}, ErrEmptyUserID
	}
	unlock := s.lock(userID)
	defer unlock()

	p, found, err := s.store.Load(ctx, userID)
	if err != nil {
		return Preference{}, fmt.Errorf("load preference: %w", err)
	}
	if found {
		return p.clone(), nil
	}
	return s.modify(ctx, userID, nil)
}

// Apply runs updates in order against the current record and saves the result once.
func (s *Service) Apply(ctx context.Context, userID string, updates ...Update) (Preference, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Preference{}, ErrEmptyUserID
	}
	unlock := s.lock(userID)
	defer unlock()

	return s.modify(ctx, userID, func(p *Preference) {
		for _, u := range updates {
			if u != nil {
				u.apply(p)
			}
		}
	})
}

func (s *Service) modify(ctx context.Context, userID string, fn func(*Preference)) (Preference, error) {
	p, created, err := s.store.Modify(ctx, userID, s.defaults, fn)
	if err != nil {
		return Preference{}, fmt.Errorf("save preference: %w", err)
	}
	if created {
		obslog.L().Info("user_pref_created", zap.String("user_id", userID))
	}
	return p.clone(), nil
}
