package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces all entries so a shared Redis instance can
// host other applications alongside the credential store.
const redisKeyPrefix = "password-alert"

// RedisStore persists credential records in Redis.
// It satisfies Store and exists for fleets that centralize one credential
// store across machines instead of keeping per-machine SQLite files.
// Records share the EncodeRecord/DecodeRecord format with the SQLite
// backend.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore on top of an existing client.
// The caller owns client configuration (address, auth, TLS); Close closes
// the client. logger defaults to slog.Default() when nil.
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// key maps a store key into the prefixed Redis namespace.
func (s *RedisStore) key(k string) string {
	return redisKeyPrefix + ":" + k
}

// Lookup returns the record for the fingerprint.
func (s *RedisStore) Lookup(ctx context.Context, fingerprint string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to look up record: %w", err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		// An unreadable entry cannot match anything; treat it as absent
		s.logger.Warn("skipping unreadable store entry", "key", fingerprint, "error", err)
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// Put writes the record for the fingerprint, replacing any previous value.
func (s *RedisStore) Put(ctx context.Context, fingerprint string, rec Record) error {
	value, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(fingerprint), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Snapshot returns all decodable records keyed by fingerprint.
// The salt entry is excluded; unreadable entries are skipped and logged.
func (s *RedisStore) Snapshot(ctx context.Context) (map[string]Record, error) {
	snapshot := make(map[string]Record)

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		key := strings.TrimPrefix(full, redisKeyPrefix+":")
		if key == saltKey {
			continue
		}

		data, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between scan and read; nothing to report
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		rec, err := DecodeRecord(data)
		if err != nil {
			s.logger.Warn("skipping unreadable store entry", "key", key, "error", err)
			continue
		}
		snapshot[key] = rec
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}

	return snapshot, nil
}

// Apply executes a batch of mutations in a single MULTI/EXEC transaction.
// Deletes run before puts so a key appearing in both ends up written.
func (s *RedisStore) Apply(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}

	// Encode outside the pipeline so an encoding failure aborts cleanly
	encoded := make(map[string][]byte, len(batch.Put))
	for key, rec := range batch.Put {
		value, err := EncodeRecord(rec)
		if err != nil {
			return err
		}
		encoded[key] = value
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range batch.Delete {
			pipe.Del(ctx, s.key(key))
		}
		for key, value := range encoded {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply batch: %w", err)
	}
	return nil
}

// Salt returns the persisted salt, or an empty string when none exists.
func (s *RedisStore) Salt(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key(saltKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load salt: %w", err)
	}
	return value, nil
}

// PutSalt persists the per-install salt.
func (s *RedisStore) PutSalt(ctx context.Context, salt string) error {
	if err := s.client.Set(ctx, s.key(saltKey), salt, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist salt: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
