package storage

import (
	"idle_tapper/internal/logger"
)

// Options picks the backend: Redis when an address is given and reachable,
// then a bbolt database under DataDir, then memory.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DataDir       string
}

func Open(opts Options) (KV, error) {
	log := logger.Component("storage")
	if opts.RedisAddr != "" {
		kv, err := NewRedisKV(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err == nil {
			log.Info("using redis backend", "addr", opts.RedisAddr)
			return kv, nil
		}
		log.Warn("redis unavailable, falling back to local storage", "addr", opts.RedisAddr, "error", err)
	}
	if opts.DataDir != "" {
		kv, err := NewBoltKV(opts.DataDir)
		if err != nil {
			return nil, err
		}
		log.Info("using bolt backend", "dir", opts.DataDir)
		return kv, nil
	}
	log.Warn("no data dir configured, state is kept in memory only")
	return NewMemoryKV(), nil
}
