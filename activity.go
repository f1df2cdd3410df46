package educonnect

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignupSuccess      ActivityEventType = "auth.signup.success"
	ActivityEventSignupFailure      ActivityEventType = "auth.signup.failure"
	ActivityEventSignupPartial      ActivityEventType = "auth.signup.partial"
	ActivityEventSigninSuccess      ActivityEventType = "auth.signin.success"
	ActivityEventSigninFailure      ActivityEventType = "auth.signin.failure"
	ActivityEventSigninRoleMismatch ActivityEventType = "auth.signin.role_mismatch"
	ActivityEventSignout            ActivityEventType = "auth.signout"
	ActivityEventSessionChanged     ActivityEventType = "session.changed"
	ActivityEventBootstrapComplete  ActivityEventType = "session.bootstrap.complete"
	ActivityEventBootstrapFailure   ActivityEventType = "session.bootstrap.failure"
	ActivityEventProfileProvisioned ActivityEventType = "profile.provisioned"
	ActivityEventRequirementCreated ActivityEventType = "requirement.created"
	ActivityEventInstanceCreated    ActivityEventType = "instance.created"
	ActivityEventInstanceClosed     ActivityEventType = "instance.closed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	InstanceID string
	IdentityID string
	Role       Role
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink forwards events to every sink, returning the first error.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if event.InstanceID == "" {
		if inst, ok := InstanceFromContext(ctx); ok {
			event.InstanceID = inst.ID()
		}
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		ensureLogger(logger).Warn("activity sink record error", "event", event.EventType, "error", err)
	}
}
