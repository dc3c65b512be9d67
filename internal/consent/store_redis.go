package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"placet/pkg/platform/sentinel"
)

const redisKeyPrefix = "consent:"

// redisGrace keeps expired records visible to Stats/Cleanup for a while
// before Redis reclaims them on its own.
const redisGrace = 24 * time.Hour

// RedisStore backs the consent contract with Redis for multi-instance
// deployments. Records are stored as JSON values; UpdateSignedHash runs
// under WATCH so the set-at-most-once invariant holds across instances.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) key(token string) string {
	return redisKeyPrefix + token
}

func (s *RedisStore) Save(ctx context.Context, record Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal consent record: %w", err)
	}
	ttl := record.ExpiresAt.Sub(s.now()) + redisGrace
	if ttl <= 0 {
		ttl = redisGrace
	}
	if err := s.client.Set(ctx, s.key(record.Token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save consent record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Record, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get consent record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("unmarshal consent record: %w", err)
	}
	return record, nil
}

func (s *RedisStore) UpdateSignedHash(ctx context.Context, token, hash string) error {
	key := s.key(token)
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get consent record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("unmarshal consent record: %w", err)
		}
		if record.SignedHash != "" && record.SignedHash != hash {
			return sentinel.ErrConflict
		}
		record.SignedHash = hash
		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal consent record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}
	return s.client.Watch(ctx, txn, key)
}

func (s *RedisStore) Cleanup(ctx context.Context) (int, error) {
	now := s.now()
	removed := 0
	err := s.scan(ctx, func(key string, record Record) error {
		if !record.Expired(now) {
			return nil
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	var stats Stats
	err := s.scan(ctx, func(_ string, record Record) error {
		stats.Total++
		if record.Expired(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
		return nil
	})
	return stats, err
}

func (s *RedisStore) scan(ctx context.Context, fn func(key string, record Record) error) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // reclaimed between SCAN and GET
		}
		if err != nil {
			return fmt.Errorf("get consent record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("unmarshal consent record: %w", err)
		}
		if err := fn(key, record); err != nil {
			return err
		}
	}
	return iter.Err()
}
