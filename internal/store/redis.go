// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	dataPrefix    = "relay:data:"
	claimPrefix   = "relay:claim:"
	changeChannel = "relay:changes"

	// claimTTL bounds how long a session code stays reserved. Live
	// sessions are far shorter than this.
	claimTTL = 24 * time.Hour
)

// RedisStore backs the Store contract with Redis. Each path maps to a hash
// whose fields hold the JSON-encoded top-level fields of the object, so
// Increment can lean on HINCRBY for real atomicity. Change notifications
// ride a single pub/sub channel carrying the changed path; subscribers
// filter by prefix and re-read their own path.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func dataKey(path string) string  { return dataPrefix + path }
func claimKey(path string) string { return claimPrefix + path }

func (s *RedisStore) Read(ctx context.Context, path string) ([]byte, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, dataKey(path)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis read %s: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return assembleObject(fields)
}

func assembleObject(fields map[string]string) ([]byte, bool, error) {
	obj := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		obj[k] = json.RawMessage(v)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Write(ctx context.Context, path string, value []byte) error {
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(value, &obj); err != nil {
		return fmt.Errorf("redis write non-object at %s: %w", path, err)
	}
	flat := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		flat[k] = string(v)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, dataKey(path))
	if len(flat) > 0 {
		pipe.HSet(ctx, dataKey(path), flat)
	}
	pipe.Publish(ctx, changeChannel, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Merge(ctx context.Context, path string, fields map[string]any) error {
	flat := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal merge field %s: %w", k, err)
		}
		flat[k] = string(raw)
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, dataKey(path), flat)
	pipe.Publish(ctx, changeChannel, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis merge %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	keys := []string{dataKey(path), claimKey(path)}
	iter := s.rdb.Scan(ctx, 0, dataKey(path)+"/*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan under %s: %w", path, err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.Publish(ctx, changeChannel, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis remove %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) CreateChild(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

func (s *RedisStore) ReadChildren(ctx context.Context, path string) (map[string][]byte, error) {
	prefix := dataKey(path) + "/"
	children := make(map[string][]byte)
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		fields, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis read child %s: %w", rest, err)
		}
		if len(fields) == 0 {
			continue
		}
		data, _, err := assembleObject(fields)
		if err != nil {
			return nil, err
		}
		children[rest] = data
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan children of %s: %w", path, err)
	}
	return children, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, onValue func(value []byte, ok bool)) (CancelFunc, error) {
	ps := s.rdb.Subscribe(ctx, changeChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", path, err)
	}

	// initial delivery with the current value
	v, ok, err := s.Read(ctx, path)
	if err != nil {
		ps.Close()
		return nil, err
	}
	onValue(v, ok)

	go func() {
		for msg := range ps.Channel() {
			changed := msg.Payload
			if changed != path && !strings.HasPrefix(changed, path+"/") {
				continue
			}
			v, ok, err := s.Read(context.Background(), path)
			if err != nil {
				continue
			}
			onValue(v, ok)
		}
	}()

	return func() { ps.Close() }, nil
}

func (s *RedisStore) Increment(ctx context.Context, path, field string, delta int64) (int64, error) {
	val, err := s.rdb.HIncrBy(ctx, dataKey(path), field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis increment %s.%s: %w", path, field, err)
	}
	s.rdb.Publish(ctx, changeChannel, path)
	return val, nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error) {
	claimed, err := s.rdb.SetNX(ctx, claimKey(path), "1", claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim %s: %w", path, err)
	}
	if !claimed {
		return false, nil
	}
	if err := s.Write(ctx, path, value); err != nil {
		return false, err
	}
	return true, nil
}
