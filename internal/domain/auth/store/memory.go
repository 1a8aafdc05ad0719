package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryStore struct {
	sessions    map[string]Session
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		sessions:    make(map[string]Session),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Save(_ context.Context, session Session) error {
	if session.JTI == "" {
		return fmt.Errorf("session jti required")
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = now.Add(s.ttl)
	}

	s.mutex.Lock()
	s.sessions[session.JTI] = session
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, jti string) (Session, error) {
	s.mutex.RLock()
	session, ok := s.sessions[jti]
	s.mutex.RUnlock()
	if !ok {
		return Session{}, fmt.Errorf("session not found: %s", jti)
	}
	if session.Expired(time.Now()) {
		return Session{}, fmt.Errorf("session expired: %s", jti)
	}
	return session, nil
}

func (s *memoryStore) Revoke(_ context.Context, jti string) error {
	s.mutex.Lock()
	delete(s.sessions, jti)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) IsActive(_ context.Context, jti string) (bool, error) {
	s.mutex.RLock()
	session, ok := s.sessions[jti]
	s.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	return !session.Expired(time.Now()), nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for jti, session := range s.sessions {
		if !session.Expired(now) {
			ids = append(ids, jti)
		}
	}
	return ids, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for jti, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, jti)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := len(s.sessions)
	active := 0
	for _, session := range s.sessions {
		if !session.Expired(now) {
			active++
		}
	}
	return map[string]any{
		"type":        "memory",
		"total":       total,
		"active":      active,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
