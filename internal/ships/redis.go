package ships

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps each ship as a JSON string under prefix+id, with a
// sorted set of "name\x00id" members at prefix+"index" for search.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to a Redis server.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "shipyard:ship:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func indexMember(ship *Ship) string {
	return ship.Name + "\x00" + ship.ID
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Ship, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ships: get %s: %w", id, err)
	}
	var ship Ship
	if err := json.Unmarshal(val, &ship); err != nil {
		return nil, fmt.Errorf("ships: decode %s: %w", id, err)
	}
	return &ship, nil
}

// Search implements Store. Members share a score so the set is ordered by
// name, which Search relies on.
func (s *RedisStore) Search(ctx context.Context, query string) ([]Summary, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ships: search: %w", err)
	}

	var keys []string
	for _, m := range members {
		name, id, ok := cutMember(m)
		if ok && matches(name, query) {
			keys = append(keys, s.key(id))
		}
	}
	results := []Summary{}
	if len(keys) == 0 {
		return results, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ships: search: %w", err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		var ship Ship
		if err := json.Unmarshal([]byte(str), &ship); err != nil {
			return nil, fmt.Errorf("ships: search: %w", err)
		}
		results = append(results, ship.Summary())
	}
	sortSummaries(results)
	return results, nil
}

// Put implements Store. A rename replaces the old index member.
func (s *RedisStore) Put(ctx context.Context, ship *Ship) error {
	data, err := json.Marshal(ship)
	if err != nil {
		return fmt.Errorf("ships: encode %s: %w", ship.ID, err)
	}

	old, err := s.Get(ctx, ship.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if old != nil && old.Name != ship.Name {
		pipe.ZRem(ctx, s.indexKey(), indexMember(old))
	}
	pipe.Set(ctx, s.key(ship.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: indexMember(ship)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ships: put %s: %w", ship.ID, err)
	}
	return nil
}

// Seed writes ships unless the index already has entries.
func (s *RedisStore) Seed(ctx context.Context, ships []*Ship) error {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("ships: seed: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, ship := range ships {
		if err := s.Put(ctx, ship); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func cutMember(m string) (name, id string, ok bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] == 0 {
			return m[:i], m[i+1:], true
		}
	}
	return "", "", false
}
