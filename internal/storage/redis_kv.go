package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisKV stores keys in Redis. Counters use INCR, so serials stay unique
// across processes sharing the instance.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects and pings. The caller decides whether a failure is
// fatal or a reason to fall back to a local backend.
func NewRedisKV(addr, password string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisKV{client: client}, nil
}

// Client exposes the connection so the rate limiter can share it.
func (r *RedisKV) Client() *redis.Client { return r.client }

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// SetMany sends the pairs as one MULTI/EXEC.
func (r *RedisKV) SetMany(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, k, v, 0)
		}
		return nil
	})
	return err
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil && isWrongType(err) {
		return 0, ErrNotCounter
	}
	return n, err
}

func isWrongType(err error) bool {
	var re redis.Error
	if errors.As(err, &re) {
		msg := re.Error()
		return strings.HasPrefix(msg, "WRONGTYPE") || strings.Contains(msg, "not an integer")
	}
	return false
}

func (r *RedisKV) Close() error { return r.client.Close() }
