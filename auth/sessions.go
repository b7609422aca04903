package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	// SessionStore keeps the token -> user id mapping. Implementations
	// must be safe for concurrent use.
	SessionStore interface {
		Save(ctx context.Context, token Token, userID int64) error
		// Lookup returns false when the token is unknown or expired
		Lookup(ctx context.Context, token Token) (int64, bool, error)
		// Delete of an unknown token is not an error
		Delete(ctx context.Context, token Token) error
		Close() error
	}

	memStore struct {
		cache *bigcache.BigCache
		ttl   time.Duration
		now   func() time.Time
	}
)

const sessionEntrySize = 16

// InMemorySessionStore keeps sessions in a bigcache instance, entries
// are dropped after ttl
func InMemorySessionStore(ttl time.Duration) (SessionStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", ttl)
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntrySize = sessionEntrySize
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create session cache, cause %w", err)
	}
	return &memStore{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (m *memStore) Save(ctx context.Context, token Token, userID int64) error {
	var buf [sessionEntrySize]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(userID))
	binary.BigEndian.PutUint64(buf[8:], uint64(m.now().Add(m.ttl).UnixNano()))
	return m.cache.Set(string(token), buf[:])
}

func (m *memStore) Lookup(ctx context.Context, token Token) (int64, bool, error) {
	buf, err := m.cache.Get(string(token))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	if len(buf) != sessionEntrySize {
		return 0, false, nil
	}
	// bigcache only evicts on its clean window, expiry is checked here
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(buf[8:])))
	if !m.now().Before(expires) {
		_ = m.cache.Delete(string(token))
		return 0, false, nil
	}
	return int64(binary.BigEndian.Uint64(buf[:8])), true, nil
}

func (m *memStore) Delete(ctx context.Context, token Token) error {
	err := m.cache.Delete(string(token))
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (m *memStore) Close() error {
	return m.cache.Close()
}
