package educonnect

import (
	"context"
	"sync"
	"time"
)

// Bootstrapper keeps a SessionStore in line with the identity client: it
// loads the current session once and then follows pushed auth transitions
// until Teardown.
//
// Ordering rules:
//   - a transition whose identity matches the stored one (same id and role)
//     leaves the store untouched, and so does the result of an explicit
//     sign in or sign out once its own transition was applied;
//   - the initial session lookup is dropped if any transition arrived before
//     it resolved, the transition being the newer fact;
//   - nothing reaches the store after Teardown.
//
// Store subscribers are called while the bootstrapper holds its lock and must
// not call back into it.
type Bootstrapper struct {
	client     IdentityClient
	store      *SessionStore
	logger     Logger
	sink       ActivitySink
	timeout    time.Duration
	instanceID string

	mu        sync.Mutex
	started   bool
	closed    bool
	notified  uint64
	sub       Subscription
	ready     chan struct{}
	readyOnce sync.Once
}

// NewBootstrapper wires client to store. Start must be called to begin.
func NewBootstrapper(client IdentityClient, store *SessionStore) *Bootstrapper {
	return &Bootstrapper{
		client:  client,
		store:   store,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		timeout: DefaultBootstrapTimeout,
		ready:   make(chan struct{}),
	}
}

func (b *Bootstrapper) WithLogger(logger Logger) *Bootstrapper {
	b.logger = ensureLogger(logger)
	return b
}

// WithTimeout bounds the initial session lookup.
func (b *Bootstrapper) WithTimeout(timeout time.Duration) *Bootstrapper {
	if timeout > 0 {
		b.timeout = timeout
	}
	return b
}

func (b *Bootstrapper) WithActivitySink(sink ActivitySink) *Bootstrapper {
	b.sink = normalizeActivitySink(sink)
	return b
}

func (b *Bootstrapper) WithInstanceID(id string) *Bootstrapper {
	b.instanceID = id
	return b
}

// Start registers the auth listener and issues the initial session lookup in
// the background. Calling it again, or after Teardown, does nothing.
func (b *Bootstrapper) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.sub = b.client.OnAuthStateChange(b.handleChange)
	b.mu.Unlock()

	go b.loadSession(context.WithoutCancel(ctx))
}

// Ready is closed once the store was reconciled: the initial lookup
// resolved, failed, timed out, a transition arrived, or Teardown ran.
func (b *Bootstrapper) Ready() <-chan struct{} {
	return b.ready
}

// Active reports whether the auth listener is still registered.
func (b *Bootstrapper) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub != nil && !b.closed
}

// Teardown releases the auth listener. It is safe to call more than once and
// never touches the store.
func (b *Bootstrapper) Teardown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	b.markReady()
}

func (b *Bootstrapper) loadSession(ctx context.Context) {
	defer b.markReady()

	started := time.Now()
	fctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		session *Session
		err     error
	}

	done := make(chan result, 1)
	go func() {
		session, err := b.client.GetSession(fctx)
		done <- result{session: session, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-fctx.Done():
		res.err = fctx.Err()
	}

	var identity *Identity
	if res.err != nil {
		b.logger.Warn("initial session lookup failed, continuing anonymous",
			"instance", b.instanceID,
			"error", res.err,
			"elapsed", time.Since(started),
		)
		emitActivity(ctx, b.sink, b.logger, ActivityEvent{
			EventType:  ActivityEventBootstrapFailure,
			InstanceID: b.instanceID,
			Metadata: map[string]any{
				"error":   res.err.Error(),
				"elapsed": time.Since(started).Seconds(),
			},
		})
	} else {
		identity = res.session.GetIdentity()
		emitActivity(ctx, b.sink, b.logger, ActivityEvent{
			EventType:  ActivityEventBootstrapComplete,
			InstanceID: b.instanceID,
			IdentityID: identityID(identity),
			Role:       Classify(identity),
			Metadata: map[string]any{
				"elapsed":   time.Since(started).Seconds(),
				"anonymous": identity == nil,
			},
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.logger.Debug("initial session resolved after teardown, dropped", "instance", b.instanceID)
		return
	}

	if b.notified > 0 {
		b.logger.Debug("initial session superseded by auth transition", "instance", b.instanceID)
		return
	}

	b.store.SetIdentity(identity)
}

func (b *Bootstrapper) handleChange(event AuthEvent, session *Session) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return
	}

	b.notified++
	identity := session.GetIdentity()

	if !b.store.ApplyIdentity(identity) {
		b.mu.Unlock()
		b.logger.Debug("auth transition matches current identity, skipped", "event", event, "instance", b.instanceID)
		b.markReady()
		return
	}
	b.mu.Unlock()

	b.logger.Debug("auth transition applied", "event", event, "instance", b.instanceID)
	b.markReady()
}

func (b *Bootstrapper) markReady() {
	b.readyOnce.Do(func() {
		close(b.ready)
	})
}
