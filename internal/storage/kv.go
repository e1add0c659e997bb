// Package storage is the local key/value layer under the save store. Values
// are opaque bytes; counters are decimal strings so Incr behaves the same on
// every backend.
package storage

import (
	"context"
	"errors"
	"strconv"
)

var ErrNotCounter = errors.New("value is not an integer counter")

// KV is what the save store and serial counters need from a backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every pair or none of them.
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

func incrValue(cur []byte, ok bool) ([]byte, int64, error) {
	var n int64
	if ok {
		v, err := strconv.ParseInt(string(cur), 10, 64)
		if err != nil {
			return nil, 0, ErrNotCounter
		}
		n = v
	}
	n++
	return []byte(strconv.FormatInt(n, 10)), n, nil
}
