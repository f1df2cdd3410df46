package educonnect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Instance is the server side state of one browser: its session store, the
// identity client bound to it and the bootstrapper syncing the two.
type Instance struct {
	id        string
	store     *SessionStore
	client    IdentityClient
	boot      *Bootstrapper
	storeSub  Subscription
	createdAt time.Time
	lastSeen  atomic.Int64
	closeOnce sync.Once
}

func (i *Instance) ID() string                  { return i.id }
func (i *Instance) Store() *SessionStore        { return i.store }
func (i *Instance) Client() IdentityClient      { return i.client }
func (i *Instance) Bootstrapper() *Bootstrapper { return i.boot }
func (i *Instance) CreatedAt() time.Time        { return i.createdAt }

// LastSeen is the last time the instance served a request.
func (i *Instance) LastSeen() time.Time {
	return time.Unix(0, i.lastSeen.Load())
}

func (i *Instance) touch(now time.Time) {
	i.lastSeen.Store(now.UnixNano())
}

// WaitReady blocks until the initial session reconciliation finished, max
// elapsed or ctx is done. It reports whether the instance is ready.
func (i *Instance) WaitReady(ctx context.Context, max time.Duration) bool {
	select {
	case <-i.boot.Ready():
		return true
	default:
	}

	if max <= 0 {
		return false
	}

	timer := time.NewTimer(max)
	defer timer.Stop()

	select {
	case <-i.boot.Ready():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (i *Instance) close() {
	i.closeOnce.Do(func() {
		i.boot.Teardown()
		if i.storeSub != nil {
			i.storeSub.Unsubscribe()
		}
	})
}

// InstanceRegistry owns the application instances of the running server.
type InstanceRegistry struct {
	mu        sync.Mutex
	instances map[string]*Instance
	factory   ClientFactory
	logger    Logger
	sink      ActivitySink
	timeout   time.Duration
	now       func() time.Time
}

func NewInstanceRegistry(factory ClientFactory) *InstanceRegistry {
	return &InstanceRegistry{
		instances: map[string]*Instance{},
		factory:   factory,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		timeout:   DefaultBootstrapTimeout,
		now:       time.Now,
	}
}

func (r *InstanceRegistry) WithLogger(logger Logger) *InstanceRegistry {
	r.logger = ensureLogger(logger)
	return r
}

func (r *InstanceRegistry) WithActivitySink(sink ActivitySink) *InstanceRegistry {
	r.sink = normalizeActivitySink(sink)
	return r
}

// WithBootstrapTimeout bounds the initial session lookup of new instances.
func (r *InstanceRegistry) WithBootstrapTimeout(timeout time.Duration) *InstanceRegistry {
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// NewInstanceID returns a fresh random instance id.
func NewInstanceID() string {
	return uuid.NewString()
}

// Resolve returns the instance for id, creating and starting it when it does
// not exist. An empty id gets a new one.
func (r *InstanceRegistry) Resolve(ctx context.Context, id string) *Instance {
	if id == "" {
		id = NewInstanceID()
	}

	now := r.now()

	r.mu.Lock()
	if inst, ok := r.instances[id]; ok {
		r.mu.Unlock()
		inst.touch(now)
		return inst
	}

	inst := r.build(id, now)
	r.instances[id] = inst
	r.mu.Unlock()

	r.logger.Debug("application instance created", "instance", id)
	emitActivity(ctx, r.sink, r.logger, ActivityEvent{
		EventType:  ActivityEventInstanceCreated,
		InstanceID: id,
	})

	inst.boot.Start(WithInstance(ctx, inst))
	return inst
}

func (r *InstanceRegistry) build(id string, now time.Time) *Instance {
	store := NewSessionStore()
	client := r.factory(id)

	inst := &Instance{
		id:        id,
		store:     store,
		client:    client,
		createdAt: now,
	}
	inst.touch(now)

	inst.boot = NewBootstrapper(client, store).
		WithLogger(r.logger).
		WithActivitySink(r.sink).
		WithTimeout(r.timeout).
		WithInstanceID(id)

	inst.storeSub = store.Subscribe(func(identity *Identity) {
		event := ActivityEvent{
			EventType:  ActivityEventSessionChanged,
			InstanceID: id,
			Role:       Classify(identity),
			Metadata:   map[string]any{"authenticated": identity != nil},
		}
		if identity != nil {
			event.IdentityID = identity.ID
		}
		emitActivity(context.Background(), r.sink, r.logger, event)
	})

	return inst
}

// Get returns the instance for id without creating it.
func (r *InstanceRegistry) Get(id string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Len reports how many instances are live.
func (r *InstanceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Evict tears down and forgets the instance for id.
func (r *InstanceRegistry) Evict(id string) bool {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	r.mu.Unlock()

	if ok {
		r.closeInstance(inst, "evicted")
	}
	return ok
}

// Sweep tears down instances idle for longer than maxIdle and returns how
// many were removed.
func (r *InstanceRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Instance
	for id, inst := range r.instances {
		if inst.LastSeen().Before(cutoff) {
			stale = append(stale, inst)
			delete(r.instances, id)
		}
	}
	r.mu.Unlock()

	for _, inst := range stale {
		r.closeInstance(inst, "idle")
	}
	return len(stale)
}

// RunSweeper sweeps idle instances every interval until ctx is done. A
// non positive interval disables sweeping.
func (r *InstanceRegistry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		r.logger.Warn("instance sweeper disabled, interval must be positive", "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.logger.Info("swept idle application instances", "count", n)
			}
		}
	}
}

// Close tears down every instance.
func (r *InstanceRegistry) Close() {
	r.mu.Lock()
	all := make([]*Instance, 0, len(r.instances))
	for id, inst := range r.instances {
		all = append(all, inst)
		delete(r.instances, id)
	}
	r.mu.Unlock()

	for _, inst := range all {
		r.closeInstance(inst, "shutdown")
	}
}

func (r *InstanceRegistry) closeInstance(inst *Instance, reason string) {
	inst.close()
	r.logger.Debug("application instance closed", "instance", inst.id, "reason", reason)
	emitActivity(context.Background(), r.sink, r.logger, ActivityEvent{
		EventType:  ActivityEventInstanceClosed,
		InstanceID: inst.id,
		Metadata:   map[string]any{"reason": reason},
	})
}
