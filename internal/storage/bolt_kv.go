package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltFile = "kv.db"

var boltBucket = []byte("kv")

// BoltKV keeps keys in a bbolt database under dataDir. Every write is one
// fsynced transaction; SetMany commits a whole save in a single one.
type BoltKV struct {
	db *bolt.DB
}

// NewBoltKV opens (or creates) the database. The file is locked while open,
// so a second process gives up after a second instead of hanging.
func NewBoltKV(dataDir string) (*BoltKV, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, boltFile)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return &BoltKV{db: db}, nil
}

func (b *BoltKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		// values are only valid inside the transaction
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			out = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (b *BoltKV) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
}

func (b *BoltKV) SetMany(_ context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(boltBucket)
		for k, v := range values {
			if err := bk.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltKV) Delete(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := bk.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltKV) Incr(_ context.Context, key string) (int64, error) {
	var n int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(boltBucket)
		cur := bk.Get([]byte(key))
		next, v, err := incrValue(cur, cur != nil)
		if err != nil {
			return err
		}
		n = v
		return bk.Put([]byte(key), next)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *BoltKV) Close() error { return b.db.Close() }
