package educonnect

import "sync"

// SessionStore holds the identity of the live session for one application
// instance. SetIdentity is the only way to change it.
type SessionStore struct {
	mu       sync.RWMutex
	identity *Identity

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(*Identity)
	order  []int
}

// NewSessionStore returns an anonymous store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		subs: map[int]func(*Identity){},
	}
}

// SetIdentity replaces the held identity and notifies subscribers with the
// new value. Passing nil makes the store anonymous.
func (s *SessionStore) SetIdentity(identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	for _, fn := range s.snapshot() {
		fn(identity)
	}
}

// ApplyIdentity sets identity unless the store already holds the same
// identity ID and role. It reports whether subscribers were notified.
func (s *SessionStore) ApplyIdentity(identity *Identity) bool {
	s.mu.Lock()
	if sameIdentity(s.identity, identity) {
		s.mu.Unlock()
		return false
	}
	s.identity = identity
	s.mu.Unlock()

	for _, fn := range s.snapshot() {
		fn(identity)
	}
	return true
}

// GetIdentity returns the current identity or nil.
func (s *SessionStore) GetIdentity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Role classifies the current identity.
func (s *SessionStore) Role() Role {
	return Classify(s.GetIdentity())
}

// Subscribe registers fn to be called after every SetIdentity.
func (s *SessionStore) Subscribe(fn func(*Identity)) Subscription {
	if fn == nil {
		return SubscriptionFunc(nil)
	}

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.subMu.Unlock()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	})
}

func (s *SessionStore) snapshot() []func(*Identity) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	out := make([]func(*Identity), 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.subs[id])
	}
	return out
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID && Classify(a) == Classify(b)
}
