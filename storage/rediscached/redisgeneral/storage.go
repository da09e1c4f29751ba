package redisgeneral

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis storage
// For consistence storable objects must have version (implement WithVersion interface)
// In redis objects stored in hashmap {"value" : data, "vers" : version}
// A tombstone is a hashmap with only "vers" set above any real version.

// ErrTombstoned is returned by SetWithFreshness when the key was removed
// with Tombstone and has not expired yet.
var ErrTombstoned = errors.New("redis key is tombstoned")

const tombstoneVersion = math.MaxInt32

type WithVersion interface {
	GetVersion() int
}

func NewStorage[T WithVersion](client *redis.Client, ttl time.Duration) *Storage[T] {
	if client == nil {
		panic("nil redis client")
	}
	return &Storage[T]{
		client: client,
		ttl:    ttl,
	}
}

type Storage[T WithVersion] struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *Storage[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	marshalledResult, err := s.client.HGet(ctx, key, "value").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("redis error: %w", err)
	}

	result, err := s.unmarshalJSON([]byte(marshalledResult))
	if err != nil {
		return zero, false, fmt.Errorf("incorrect json: %w", err)
	}
	return result, true, nil
}

func (s *Storage[T]) Delete(ctx context.Context, key string) error {
	err := s.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("redis failed delete: %w", err)
	}
	return nil
}

// Tombstone drops the value under key and blocks SetWithFreshness on it for
// the storage ttl. Get reports a tombstoned key as missing.
func (s *Storage[T]) Tombstone(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, key, "value")
	pipe.HSet(ctx, key, "vers", tombstoneVersion)
	pipe.PExpire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis failed tombstone: %w", err)
	}
	return nil
}

func (s *Storage[T]) unmarshalJSON(valueJSON []byte) (T, error) {
	var unmarshalled T
	if err := json.Unmarshal(valueJSON, &unmarshalled); err != nil {
		return unmarshalled, fmt.Errorf("unmarshal json failed: %w", err)
	}
	return unmarshalled, nil
}

//go:embed set_fresh.lua
var setWithFreshnessSource string
var setWithFreshnessScript = redis.NewScript(setWithFreshnessSource)

// SetWithFreshness stores value unless the cache already holds a newer
// version, and returns whichever one is kept.
func (s *Storage[T]) SetWithFreshness(ctx context.Context, key string, value T) (T, error) {
	marshalled, err := json.Marshal(value)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("marshalling failed: %w", err)
	}

	keys := []string{key}
	argv := []interface{}{marshalled, value.GetVersion(), s.ttl.Milliseconds()}
	returned, err := setWithFreshnessScript.Run(ctx, s.client, keys, argv...).Text()
	if err != nil {
		var zero T
		if errors.Is(err, redis.Nil) {
			return zero, ErrTombstoned
		}
		return zero, fmt.Errorf("redis error: %w", err)
	}
	return s.unmarshalJSON([]byte(returned))
}
