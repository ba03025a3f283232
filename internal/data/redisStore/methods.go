package redisStore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// MGet returns the values in key order; missing keys come back as "".
func (s *Store) MGet(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			out[i] = str
		}
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// sets index records by owner and by collection

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *Store) SetCount(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

// lists hold the chat transcript, oldest first

func (s *Store) ListLength(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

// ListTail returns the last n entries, oldest first.
func (s *Store) ListTail(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	return s.client.LRange(ctx, key, -n, -1).Result()
}

// sorted sets keyed by unix millis count usage over a time range

func (s *Store) CountBetween(ctx context.Context, key string, from, to time.Time) (int64, error) {
	return s.client.ZCount(ctx, key, scoreOf(from), "("+scoreOf(to)).Result()
}

func (s *Store) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	return s.client.ZCount(ctx, key, scoreOf(since), "+inf").Result()
}

// Atomically runs fn inside MULTI/EXEC.
func (s *Store) Atomically(ctx context.Context, fn func(tx redis.Pipeliner) error) error {
	_, err := s.client.TxPipelined(ctx, fn)
	return err
}

func scoreOf(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Score is the sorted set score used for t.
func Score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
