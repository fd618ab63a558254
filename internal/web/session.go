package web

import (
	"container/list"
	"sync"
	"time"

	"github.com/JonMunkholm/betaconv/internal/core"
	"github.com/JonMunkholm/betaconv/internal/table"
	"github.com/google/uuid"
)

// Default session limits, used when the config leaves them unset.
const (
	DefaultSessionTTL        = 30 * time.Minute
	DefaultSessionMaxEntries = 32
)

// Conversion is one parsed upload kept for later preview and export.
type Conversion struct {
	ID        string
	Source    core.Source
	Table     *table.Table
	Preview   *table.Table
	CreatedAt time.Time

	lastUsed time.Time
}

// SessionStore keeps conversions in memory. Entries expire ttl after their
// last use; when full, the least recently used entry is evicted.
type SessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	order   *list.List // front = most recently used
	entries map[string]*list.Element

	now func() time.Time
}

// NewSessionStore creates a store. Non-positive arguments select the defaults.
func NewSessionStore(ttl time.Duration, maxEntries int) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultSessionMaxEntries
	}
	return &SessionStore{
		ttl:     ttl,
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// newConversionID returns a fresh conversion id. Ids are assigned before the
// pipeline runs so the audit entry of the upload carries them.
func newConversionID() string {
	return uuid.NewString()
}

// Put stores a successful pipeline result under id, evicting the least
// recently used conversion when the store is full.
func (s *SessionStore) Put(id string, res core.PipelineResult) *Conversion {
	now := s.now()
	c := &Conversion{
		ID:        id,
		Source:    res.Source,
		Table:     res.Table,
		Preview:   res.Preview,
		CreatedAt: now,
		lastUsed:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	for s.order.Len() >= s.max {
		s.removeLocked(s.order.Back())
	}
	s.entries[c.ID] = s.order.PushFront(c)
	return c
}

// Get returns the conversion with id and marks it used.
// Unknown and expired ids return core.ErrConversionNotFound.
func (s *SessionStore) Get(id string) (*Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return nil, core.ErrConversionNotFound
	}

	now := s.now()
	c := el.Value.(*Conversion)
	if now.Sub(c.lastUsed) > s.ttl {
		s.removeLocked(el)
		return nil, core.ErrConversionNotFound
	}

	c.lastUsed = now
	s.order.MoveToFront(el)
	return c, nil
}

// Len returns the number of live conversions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return s.order.Len()
}

// Sweep drops expired conversions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// sweepLocked walks from the least recently used end and stops at the first
// live entry, since everything in front of it was used later.
func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for el := s.order.Back(); el != nil; {
		c := el.Value.(*Conversion)
		if now.Sub(c.lastUsed) <= s.ttl {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		removed++
		el = prev
	}
	return removed
}

func (s *SessionStore) removeLocked(el *list.Element) {
	c := s.order.Remove(el).(*Conversion)
	delete(s.entries, c.ID)
}
