package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store persists the current session between process restarts.
type Store interface {
	// Load returns nil without error when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
	Close() error
}

// NewStore returns a memory store, or a Redis store backed by a memory
// fallback when cfg.RedisAddr is set.
func NewStore(cfg StoreConfig, logger *slog.Logger) Store {
	mem := NewMemoryStore()
	if cfg.RedisAddr == "" {
		return mem
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewFallbackStore(NewRedisStore(rdb, cfg.Key), mem, logger)
}

type redisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore stores the session as JSON under key. The store owns rdb
// and closes it on Close.
func NewRedisStore(rdb *redis.Client, key string) Store {
	return &redisStore{rdb: rdb, key: key}
}

func (s *redisStore) Load(ctx context.Context) (*Session, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *redisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}

const memoryKey = "session"

type memoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() Store {
	return &memoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *memoryStore) Load(context.Context) (*Session, error) {
	v, ok := s.c.Get(memoryKey)
	if !ok {
		return nil, nil
	}
	return v.(*Session).clone(), nil
}

func (s *memoryStore) Save(_ context.Context, sess *Session) error {
	s.c.Set(memoryKey, sess.clone(), cache.NoExpiration)
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.c.Delete(memoryKey)
	return nil
}

func (s *memoryStore) Close() error {
	s.c.Flush()
	return nil
}

type fallbackStore struct {
	primary   Store
	secondary Store
	logger    *slog.Logger
}

// NewFallbackStore writes through to both stores and reads from primary,
// falling back to secondary when primary fails.
func NewFallbackStore(primary, secondary Store, logger *slog.Logger) Store {
	return &fallbackStore{primary: primary, secondary: secondary, logger: logger}
}

func (s *fallbackStore) Load(ctx context.Context) (*Session, error) {
	sess, err := s.primary.Load(ctx)
	if err == nil {
		return sess, nil
	}
	s.logger.Warn("session store unavailable, using fallback", "op", "load", "error", err)
	return s.secondary.Load(ctx)
}

func (s *fallbackStore) Save(ctx context.Context, sess *Session) error {
	if err := s.primary.Save(ctx, sess); err != nil {
		s.logger.Warn("session store unavailable, using fallback", "op", "save", "error", err)
	}
	return s.secondary.Save(ctx, sess)
}

func (s *fallbackStore) Clear(ctx context.Context) error {
	if err := s.primary.Clear(ctx); err != nil {
		s.logger.Warn("session store unavailable, using fallback", "op", "clear", "error", err)
	}
	return s.secondary.Clear(ctx)
}

func (s *fallbackStore) Close() error {
	return errors.Join(s.primary.Close(), s.secondary.Close())
}
