package educonnect

import (
	"context"

	"github.com/goliatone/go-router"
)

// LocalsInstanceKey is the router locals key holding the request's *Instance.
const LocalsInstanceKey = "educonnect_instance"

var instanceCtxKey = &contextKey{"instance"}

type contextKey struct {
	name string
}

// WithInstance sets the application instance in the given context
func WithInstance(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, instanceCtxKey, inst)
}

// InstanceFromContext finds the application instance from the context.
func InstanceFromContext(ctx context.Context) (*Instance, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(instanceCtxKey).(*Instance)
	return raw, ok && raw != nil
}

// InstanceFromRouterContext reads the instance stored by InstanceMiddleware.
func InstanceFromRouterContext(c router.Context) (*Instance, bool) {
	raw, ok := c.Locals(LocalsInstanceKey).(*Instance)
	return raw, ok && raw != nil
}

// CurrentIdentity returns the identity held by the request's instance store.
func CurrentIdentity(c router.Context) *Identity {
	inst, ok := InstanceFromRouterContext(c)
	if !ok {
		return nil
	}
	return inst.Store().GetIdentity()
}

// IdentityFromContext returns the identity of the instance carried by ctx.
func IdentityFromContext(ctx context.Context) *Identity {
	inst, ok := InstanceFromContext(ctx)
	if !ok {
		return nil
	}
	return inst.Store().GetIdentity()
}
