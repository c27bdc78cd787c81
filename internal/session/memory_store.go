package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	session Session

	mu    sync.RWMutex
	cache map[CacheKey]any
}

// MemoryStore keeps sessions in process memory only.
// The outer lock guards the id map and is held for writing only on
// create and delete; each session guards its own cache.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	ttl    time.Duration
	now    func() time.Time
	nextID func() (string, error)
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, mainly for tests that simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithIDGenerator replaces GenerateID.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *MemoryStore) {
		s.nextID = gen
	}
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		ttl:      DefaultTTL,
		now:      time.Now,
		nextID:   GenerateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(pages []Page) (*Session, error) {
	if len(pages) == 0 {
		return nil, errors.New("session: cannot create a session without pages")
	}

	copied := make([]Page, len(pages))
	copy(copied, pages)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.uniqueIDLocked()
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &entry{
		session: Session{
			ID:        id,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
			Pages:     copied,
		},
		cache: make(map[CacheKey]any),
	}
	s.sessions[id] = e

	return e.snapshot()
}

// uniqueIDLocked retries on the astronomically unlikely collision so that
// ids stay unique for the lifetime of the store.
func (s *MemoryStore) uniqueIDLocked() (string, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		id, err := s.nextID()
		if err != nil {
			return "", err
		}
		if _, taken := s.sessions[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("session: no unique id after %d attempts", attempts)
}

func (s *MemoryStore) Get(id string) (*Session, error) {
	e, err := s.live(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot()
}

func (s *MemoryStore) PutCache(id string, key CacheKey, value any) error {
	e, err := s.live(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Delete clears the cache map; never write into a removed session.
	if e.cache == nil {
		return ErrNotFound
	}
	e.cache[key] = value
	return nil
}

func (s *MemoryStore) GetCache(id string, key CacheKey) (any, bool, error) {
	e, err := s.live(id)
	if err != nil {
		return nil, false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.cache == nil {
		return nil, false, ErrNotFound
	}
	v, ok := e.cache[key]
	return v, ok, nil
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}

	e.mu.Lock()
	e.cache = nil
	e.session.Pages = nil
	e.mu.Unlock()
}

func (s *MemoryStore) ExpiredIDs() []string {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.sessions {
		if e.session.Expired(now) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// live returns the entry only while its deadline has not passed.
func (s *MemoryStore) live(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || e.session.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return e, nil
}

// snapshot fails if Delete won the race after live() returned.
func (e *entry) snapshot() (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.cache == nil {
		return nil, ErrNotFound
	}
	out := e.session
	out.Pages = make([]Page, len(e.session.Pages))
	copy(out.Pages, e.session.Pages)
	return &out, nil
}
