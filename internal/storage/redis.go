package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/starford/redisnotes/internal/apperr"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 256

// Redis implements Store on a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// OpenRedis connects to the server described by opts and pings it.
func OpenRedis(ctx context.Context, opts *redis.Options) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", opts.Addr, err)
	}
	return &Redis{client: client}, nil
}

// Get returns the string value at key.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value at key with no expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("storage: redis del: %w", err)
	}
	return nil
}

// Scan walks the keyspace with SCAN MATCH. SCAN may repeat keys, so the
// result is deduplicated.
func (r *Redis) Scan(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := r.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("storage: redis scan %s: %w", pattern, err)
	}
	out = lo.Uniq(out)
	sort.Strings(out)
	return out, nil
}

// Members returns SMEMBERS key.
func (r *Redis) Members(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: redis smembers %s: %w", key, err)
	}
	return members, nil
}

// Intersect returns SINTER keys.
func (r *Redis) Intersect(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	members, err := r.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: redis sinter: %w", err)
	}
	return members, nil
}

// Atomic replays the queued writes inside MULTI/EXEC.
func (r *Redis) Atomic(ctx context.Context, fn func(Tx) error) error {
	b, err := collect(fn)
	if err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, o := range b.ops {
			switch o.kind {
			case opSet:
				p.Set(ctx, o.key, o.value, 0)
			case opDelete:
				p.Del(ctx, o.keys...)
			case opAddMember:
				p.SAdd(ctx, o.key, lo.ToAnySlice(o.members)...)
			case opRemoveMember:
				p.SRem(ctx, o.key, lo.ToAnySlice(o.members)...)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: redis exec: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
