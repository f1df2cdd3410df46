package educonnect

import (
	"sync"
	"time"
)

// MetadataUserType is the identity metadata key holding the account role.
const MetadataUserType = "user_type"

// Identity is an authenticated principal issued by the identity service.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Session binds an identity to a live session in the identity service.
type Session struct {
	ID        string    `json:"id"`
	Identity  *Identity `json:"identity,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// GetIdentity returns the session identity, nil safe.
func (s *Session) GetIdentity() *Identity {
	if s == nil {
		return nil
	}
	return s.Identity
}

// AuthResult is returned by sign up and sign in. Session is nil when the
// identity service created the identity without opening a session.
type AuthResult struct {
	Identity *Identity
	Session  *Session
}

// SignUpRequest carries the data submitted to create an identity.
type SignUpRequest struct {
	Email    string
	Password string
	Metadata map[string]any
}

// Credentials are used for password sign in.
type Credentials struct {
	Email    string
	Password string
}

// AuthEvent names a transition pushed by the identity client.
type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "signed_in"
	AuthEventSignedOut      AuthEvent = "signed_out"
	AuthEventTokenRefreshed AuthEvent = "token_refreshed"
	AuthEventUserUpdated    AuthEvent = "user_updated"
)

// AuthStateChangeFunc receives auth transitions. session is nil on sign out.
type AuthStateChangeFunc func(event AuthEvent, session *Session)

// Subscription is a handle to an active listener.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// AuthBroadcaster fans out auth transitions to registered listeners. Identity
// client implementations embed it to provide OnAuthStateChange.
type AuthBroadcaster struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]AuthStateChangeFunc
	order     []int
}

// OnAuthStateChange registers fn. Once the returned subscription is
// unsubscribed fn is never called again, including for an Emit that is
// already running.
func (b *AuthBroadcaster) OnAuthStateChange(fn AuthStateChangeFunc) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = map[int]AuthStateChangeFunc{}
	}

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	})
}

// Emit delivers the transition to every listener in registration order.
func (b *AuthBroadcaster) Emit(event AuthEvent, session *Session) {
	b.mu.RLock()
	ids := append([]int(nil), b.order...)
	b.mu.RUnlock()

	for _, id := range ids {
		b.mu.RLock()
		fn, ok := b.listeners[id]
		b.mu.RUnlock()
		if !ok || fn == nil {
			continue
		}
		fn(event, session)
	}
}

// Listeners reports how many listeners are registered.
func (b *AuthBroadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func identityID(identity *Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}
