package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps sessions in memory and drops them after ttl without use.
type Store struct {
	data     map[string]*entry
	ttl      time.Duration
	mu       sync.RWMutex
	cleanup  *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	onExpire func(*Session)
	now      func() time.Time
}

type entry struct {
	session    *Session
	expiration time.Time
}

// NewStore creates a store and starts its cleanup loop.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &Store{
		data:    make(map[string]*entry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.cleanupLoop()

	return s
}

// OnExpire registers fn to run for every session removed by cleanup or
// Delete. fn runs without the store lock held.
func (s *Store) OnExpire(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

// Create starts a new session.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := newSession(uuid.NewString(), now)
	s.data[sess.ID] = &entry{session: sess, expiration: now.Add(s.ttl)}
	return sess
}

// Get returns a live session and extends its lifetime.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.After(e.expiration) {
		return nil, false
	}
	e.expiration = now.Add(s.ttl)
	return e.session, true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	e, ok := s.data[id]
	delete(s.data, id)
	fn := s.onExpire
	s.mu.Unlock()

	if ok && fn != nil {
		fn(e.session)
	}
}

// Size returns the number of stored sessions, expired or not.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Each calls fn for every live session.
func (s *Store) Each(fn func(*Session)) {
	s.mu.RLock()
	now := s.now()
	live := make([]*Session, 0, len(s.data))
	for _, e := range s.data {
		if !now.After(e.expiration) {
			live = append(live, e.session)
		}
	}
	s.mu.RUnlock()

	for _, sess := range live {
		fn(sess)
	}
}

func (s *Store) cleanupLoop() {
	for {
		select {
		case <-s.cleanup.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	now := s.now()
	var expired []*Session
	for id, e := range s.data {
		if now.After(e.expiration) {
			expired = append(expired, e.session)
			delete(s.data, id)
		}
	}
	fn := s.onExpire
	s.mu.Unlock()

	if fn == nil {
		return
	}
	for _, sess := range expired {
		fn(sess)
	}
}

// Stop stops the cleanup goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.cleanup.Stop()
		close(s.done)
	})
}
