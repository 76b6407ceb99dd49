// Package memory provides a thread-safe in-memory kvstore.Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/farmgate/pkg/kvstore"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Store is a thread-safe in-memory implementation of kvstore.Store.
// Suitable for testing and single-process deployments.
//
// With a TTL, entries expire that long after their last write. Expired
// entries read as missing and are swept on writes at most once per TTL.
type Store struct {
	mu        sync.Mutex
	data      map[string]entry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

var _ kvstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL expires entries d after their last write. Zero or negative keeps
// entries until removed.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new empty in-memory Store.
func New(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return "", kvstore.ErrNotFound
	}
	if s.expired(e, s.now()) {
		delete(s.data, key)
		return "", kvstore.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
		s.sweep(now)
	}
	s.data[key] = e
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys, including expired entries not yet
// swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) expired(e entry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// sweep drops expired entries. Callers hold mu.
func (s *Store) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for k, e := range s.data {
		if s.expired(e, now) {
			delete(s.data, k)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}
