package educonnect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-educonnect"
)

func newTestRegistry(sink educonnect.ActivitySink) (*educonnect.InstanceRegistry, map[string]*FakeClient) {
	clients := map[string]*FakeClient{}
	registry := educonnect.NewInstanceRegistry(func(id string) educonnect.IdentityClient {
		client := NewFakeClient()
		clients[id] = client
		return client
	}).
		WithLogger(nopLogger{}).
		WithActivitySink(sink).
		WithBootstrapTimeout(time.Second)
	return registry, clients
}

func TestInstanceRegistryResolveCreatesOnce(t *testing.T) {
	sink := &capturingSink{}
	registry, clients := newTestRegistry(sink)
	defer registry.Close()

	first := registry.Resolve(context.Background(), "browser-1")
	second := registry.Resolve(context.Background(), "browser-1")

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.Len())
	assert.Len(t, clients, 1)
	assert.Equal(t, "browser-1", first.ID())
	assert.True(t, first.WaitReady(context.Background(), time.Second))

	evt, ok := sink.Find(educonnect.ActivityEventInstanceCreated)
	require.True(t, ok)
	assert.Equal(t, "browser-1", evt.InstanceID)
}

func TestInstanceRegistryResolveEmptyID(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	defer registry.Close()

	inst := registry.Resolve(context.Background(), "")
	assert.NotEmpty(t, inst.ID())

	found, ok := registry.Get(inst.ID())
	require.True(t, ok)
	assert.Same(t, inst, found)
}

func TestInstancesAreIsolated(t *testing.T) {
	registry, clients := newTestRegistry(nil)
	defer registry.Close()

	a := registry.Resolve(context.Background(), "a")
	b := registry.Resolve(context.Background(), "b")
	require.True(t, a.WaitReady(context.Background(), time.Second))
	require.True(t, b.WaitReady(context.Background(), time.Second))

	identity := newIdentity(educonnect.RoleEducator)
	clients["a"].Emit(educonnect.AuthEventSignedIn, sessionFor(identity))

	assert.Same(t, identity, a.Store().GetIdentity())
	assert.Nil(t, b.Store().GetIdentity())
}

func TestInstanceStoreChangesEmitSessionEvents(t *testing.T) {
	sink := &capturingSink{}
	registry, clients := newTestRegistry(sink)
	defer registry.Close()

	inst := registry.Resolve(context.Background(), "browser-1")
	require.True(t, inst.WaitReady(context.Background(), time.Second))

	identity := newIdentity(educonnect.RoleOrganization)
	clients["browser-1"].Emit(educonnect.AuthEventSignedIn, sessionFor(identity))

	var changed []educonnect.ActivityEvent
	for _, evt := range sink.Events() {
		if evt.EventType == educonnect.ActivityEventSessionChanged && evt.IdentityID == identity.ID {
			changed = append(changed, evt)
		}
	}
	require.Len(t, changed, 1)
	assert.Equal(t, educonnect.RoleOrganization, changed[0].Role)
	assert.Equal(t, true, changed[0].Metadata["authenticated"])
}

func TestInstanceRegistryEvict(t *testing.T) {
	sink := &capturingSink{}
	registry, clients := newTestRegistry(sink)

	inst := registry.Resolve(context.Background(), "browser-1")
	require.True(t, inst.WaitReady(context.Background(), time.Second))

	assert.True(t, registry.Evict("browser-1"))
	assert.False(t, registry.Evict("browser-1"))
	assert.Equal(t, 0, registry.Len())

	assert.False(t, inst.Bootstrapper().Active())
	assert.Equal(t, 0, clients["browser-1"].Listeners())

	evt, ok := sink.Find(educonnect.ActivityEventInstanceClosed)
	require.True(t, ok)
	assert.Equal(t, "evicted", evt.Metadata["reason"])

	again := registry.Resolve(context.Background(), "browser-1")
	assert.NotSame(t, inst, again)
	registry.Close()
}

func TestInstanceRegistrySweep(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	defer registry.Close()

	registry.Resolve(context.Background(), "idle")
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, registry.Sweep(time.Hour))
	assert.Equal(t, 1, registry.Sweep(time.Millisecond))
	assert.Equal(t, 0, registry.Len())
}

func TestInstanceRegistryRunSweeperStopsWithContext(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	defer registry.Close()

	registry.Resolve(context.Background(), "idle")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.RunSweeper(ctx, 5*time.Millisecond, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return registry.Len() == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestInstanceRegistryRunSweeperRejectsNonPositiveInterval(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	defer registry.Close()

	registry.Resolve(context.Background(), "kept")

	assert.NotPanics(t, func() {
		registry.RunSweeper(context.Background(), -time.Minute, time.Millisecond)
	})
	assert.Equal(t, 1, registry.Len())
}

func TestInstanceRegistryClose(t *testing.T) {
	sink := &capturingSink{}
	registry, _ := newTestRegistry(sink)

	a := registry.Resolve(context.Background(), "a")
	b := registry.Resolve(context.Background(), "b")

	registry.Close()

	assert.Equal(t, 0, registry.Len())
	assert.False(t, a.Bootstrapper().Active())
	assert.False(t, b.Bootstrapper().Active())

	closed := 0
	for _, evt := range sink.Events() {
		if evt.EventType == educonnect.ActivityEventInstanceClosed {
			closed++
			assert.Equal(t, "shutdown", evt.Metadata["reason"])
		}
	}
	assert.Equal(t, 2, closed)
}

func TestInstanceWaitReadyHonoursLimit(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	client := NewFakeClient().WithGate(gate)
	registry := educonnect.NewInstanceRegistry(func(string) educonnect.IdentityClient {
		return client
	}).WithLogger(nopLogger{})
	defer registry.Close()

	inst := registry.Resolve(context.Background(), "slow")

	assert.False(t, inst.WaitReady(context.Background(), 0))
	assert.False(t, inst.WaitReady(context.Background(), 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, inst.WaitReady(ctx, time.Second))
}

func TestInstanceFromContext(t *testing.T) {
	_, inst := newTestInstance(t, NewFakeClient(), newIdentity(educonnect.RoleEducator))

	ctx := educonnect.WithInstance(context.Background(), inst)

	found, ok := educonnect.InstanceFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, inst, found)
	assert.Same(t, inst.Store().GetIdentity(), educonnect.IdentityFromContext(ctx))

	_, ok = educonnect.InstanceFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, educonnect.IdentityFromContext(context.Background()))
}
