// Package tokenstore keeps the identity service session token of each
// application instance.
package tokenstore

import (
	"context"
	"time"
)

// Store maps an instance id to its session token. Get returns "" without
// error when no token is stored.
type Store interface {
	Get(ctx context.Context, instanceID string) (string, error)
	Set(ctx context.Context, instanceID, token string, ttl time.Duration) error
	Delete(ctx context.Context, instanceID string) error
}
