package snapshot

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Close() error
}

// RedisStore keeps each snapshot in a hash with data, engine and book_size fields.
type RedisStore struct {
	client RedisClient
	prefix string
}

func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	if err := validateName(snap.Name); err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key(snap.Name),
		"data", snap.Data,
		"engine", snap.Engine,
		"book_size", snap.BookSize,
	).Err()
}

func (s *RedisStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}

	fields, err := s.client.HGetAll(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}

	size, _ := strconv.Atoi(fields["book_size"])
	return Snapshot{
		Name:     name,
		Engine:   fields["engine"],
		BookSize: size,
		Data:     []byte(fields["data"]),
	}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
