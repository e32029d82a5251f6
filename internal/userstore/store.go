package userstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/personalcms/web/internal/domain"
	"github.com/personalcms/web/internal/metrics"
)

type entry struct {
	user     domain.User
	storedAt time.Time
}

// Store holds the last known user for each session. It is a cache of what
// the profile endpoint returned for a token and is never persisted.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	cron    *cron.Cron
}

// Option configures a Store
type Option func(*Store)

// WithMetrics reports the store size into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store whose entries expire after ttl
func New(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUser replaces the user held for token; nil removes it
func (s *Store) SetUser(token string, user *domain.User) {
	key := keyFor(token)

	s.mu.Lock()
	if user == nil {
		delete(s.entries, key)
	} else {
		s.entries[key] = entry{user: *user, storedAt: s.now()}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetCachedUsers(n)
}

// User returns a copy of the user held for token
func (s *Store) User(token string) (*domain.User, bool) {
	s.mu.RLock()
	e, ok := s.entries[keyFor(token)]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, false
	}
	u := e.user
	return &u, true
}

// Len reports how many sessions have a cached user
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetCachedUsers(n)
	return removed
}

// StartSweeper runs Sweep on a cron schedule such as "@every 10m"
func (s *Store) StartSweeper(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if removed := s.Sweep(); removed > 0 {
			slog.Debug("Swept expired cached users", "removed", removed, "remaining", s.Len())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Store) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.storedAt) > s.ttl
}

// Tokens are credentials; keep only their digest in memory.
func keyFor(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
