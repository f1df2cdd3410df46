package tokenstore

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces token keys.
const DefaultRedisPrefix = "educonnect:session:"

// Redis keeps tokens in Redis so instances survive a server restart.
type Redis struct {
	Client *redis.Client
	Prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Prefix: DefaultRedisPrefix,
	}
}

func (r *Redis) Get(ctx context.Context, instanceID string) (string, error) {
	token, err := r.Client.Get(ctx, r.key(instanceID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read session token").
			WithMetadata(map[string]any{"instance": instanceID})
	}
	return token, nil
}

func (r *Redis) Set(ctx context.Context, instanceID, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.Client.Set(ctx, r.key(instanceID), token, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store session token").
			WithMetadata(map[string]any{"instance": instanceID})
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, instanceID string) error {
	if err := r.Client.Del(ctx, r.key(instanceID)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to delete session token").
			WithMetadata(map[string]any{"instance": instanceID})
	}
	return nil
}

func (r *Redis) key(instanceID string) string {
	return r.Prefix + instanceID
}
