// Package rediskv stores calendar records in Redis, one string key per record.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "kalender"

// KV implements storage.KV on a Redis client.
type KV struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Compile-time check that *KV satisfies storage.KV.
var _ storage.KV = (*KV)(nil)

// Options configures a KV.
type Options struct {
	// Prefix defaults to DefaultPrefix.
	Prefix string
	// TTL expires idle visitor records. Zero keeps them forever.
	TTL time.Duration
}

// New wraps an existing client.
func New(client redis.UniversalClient, opts Options) *KV {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &KV{client: client, prefix: prefix, ttl: opts.TTL}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts Options) (*KV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, opts), nil
}

// Close releases the underlying client.
func (k *KV) Close() error {
	return k.client.Close()
}

// Get retrieves the raw value stored under key.
// POST: Returns storage.ErrNotFound when the key does not exist
func (k *KV) Get(ctx context.Context, key storage.RecordKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	v, err := k.client.Get(ctx, key.Encode(k.prefix)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Apply writes every op inside one MULTI/EXEC transaction.
// POST: Either all ops are applied or none
func (k *KV) Apply(ctx context.Context, ops ...storage.Op) error {
	for _, op := range ops {
		if err := op.Key.Validate(); err != nil {
			return err
		}
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			key := op.Key.Encode(k.prefix)
			if op.Delete {
				pipe.Del(ctx, key)
				continue
			}
			pipe.Set(ctx, key, op.Value, k.ttl)
		}
		return nil
	})
	return err
}
