package statestore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "chatwidget:"

// RedisStore shares widget state across machines. Keys are namespaced by prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = &RedisStore{}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func NewRedisStoreFromURL(url string, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis state store: parse url")
	}
	return NewRedisStore(redis.NewClient(opts), prefix), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis state store: get %s", key)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis state store: set %s", key)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis state store: remove %s", key)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
