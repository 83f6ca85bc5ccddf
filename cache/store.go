// ABOUTME: Dual-backend key-value store with per-entry TTL: Redis when reachable at
// ABOUTME: construction, an in-process map otherwise, degrading per call on Redis errors.
package cache

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures a Store.
type Options struct {
	Addr        string        // Redis address; empty skips Redis entirely
	Password    string
	DB          int
	DialTimeout time.Duration    // default 5s, matches read/write timeouts
	Clock       func() time.Time // injectable for tests; default time.Now
}

// Stats is a point-in-time summary of the fallback backend.
type Stats struct {
	FallbackMode   bool `json:"fallback_mode"`
	TotalEntries   int  `json:"total_entries"`
	ExpiredEntries int  `json:"expired_entries"`
	ActiveEntries  int  `json:"active_entries"`
}

// Store is a key-value store with per-entry TTL backed preferentially by
// Redis. When Redis is unreachable at construction the store permanently
// falls back to the in-process backend; there is no automatic reconnect
// (Reinitialize exists for owners that want to retry explicitly). While
// Redis is live, an I/O error on a single call falls through to the
// in-process backend for that call only, so callers must treat the store as
// best-effort, not strongly consistent.
type Store struct {
	rdb  *redis.Client
	mem  *memoryBackend
	opts Options
}

// New constructs the store, attempting the Redis connection once. Any
// connection error logs and selects fallback mode for the process lifetime.
func New(ctx context.Context, opts Options) *Store {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	s := &Store{
		mem:  newMemoryBackend(opts.Clock),
		opts: opts,
	}
	s.connect(ctx)
	return s
}

func (s *Store) connect(ctx context.Context) {
	if s.opts.Addr == "" {
		log.Printf("component=cache action=fallback reason=no_redis_addr")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:         s.opts.Addr,
		Password:     s.opts.Password,
		DB:           s.opts.DB,
		DialTimeout:  s.opts.DialTimeout,
		ReadTimeout:  s.opts.DialTimeout,
		WriteTimeout: s.opts.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("component=cache action=fallback addr=%s err=%v", s.opts.Addr, err)
		_ = client.Close()
		return
	}
	log.Printf("component=cache action=connected addr=%s", s.opts.Addr)
	s.rdb = client
}

// Reinitialize retries the Redis connection. It is never called automatically;
// the owner decides if and when reconnection is worth attempting.
func (s *Store) Reinitialize(ctx context.Context) error {
	if s.rdb != nil {
		return nil
	}
	s.connect(ctx)
	if s.rdb == nil {
		return errors.New("redis still unreachable")
	}
	return nil
}

// Fallback reports whether the store runs purely on the in-process backend.
func (s *Store) Fallback() bool { return s.rdb == nil }

// Get returns the value for key, or absent. In networked mode expiry is
// enforced server-side; in fallback mode it is checked lazily at read time.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return data, true
		}
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		log.Printf("component=cache op=get key=%s err=%v", key, err)
	}
	return s.mem.get(key)
}

// Set writes the value with the given TTL; ttl <= 0 means no expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if s.rdb != nil {
		err := s.rdb.Set(ctx, key, value, ttl).Err()
		if err == nil {
			return nil
		}
		log.Printf("component=cache op=set key=%s err=%v", key, err)
	}
	s.mem.set(key, value, ttl)
	return nil
}

// Delete removes the key from the active backend. Deleting an absent key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.rdb != nil {
		err := s.rdb.Del(ctx, key).Err()
		if err == nil {
			// Also clear any per-call-degradation copy.
			s.mem.delete(key)
			return nil
		}
		log.Printf("component=cache op=delete key=%s err=%v", key, err)
	}
	s.mem.delete(key)
	return nil
}

// Exists reports whether the key is present and unexpired.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, key).Result()
		if err == nil {
			return n > 0
		}
		log.Printf("component=cache op=exists key=%s err=%v", key, err)
	}
	return s.mem.exists(key)
}

// Clear drops every entry in the active backend. In networked mode this is a
// destructive full-namespace SCAN-and-DEL: unsafe when the Redis database is
// shared with anything else.
func (s *Store) Clear(ctx context.Context) error {
	if s.rdb != nil {
		var cursor uint64
		for {
			keys, next, err := s.rdb.Scan(ctx, cursor, "*", 100).Result()
			if err != nil {
				log.Printf("component=cache op=clear err=%v", err)
				break
			}
			if len(keys) > 0 {
				if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
					log.Printf("component=cache op=clear err=%v", err)
					break
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	s.mem.clear()
	return nil
}

// SweepExpired proactively evicts expired fallback entries and returns the
// count removed. A no-op in networked mode where expiry is server-side, but
// the fallback map is swept regardless since per-call degradation may have
// written to it.
func (s *Store) SweepExpired() int {
	removed := s.mem.sweep()
	if removed > 0 {
		log.Printf("component=cache action=sweep removed=%d", removed)
	}
	return removed
}

// RunSweeper blocks, sweeping expired fallback entries on the given interval
// until ctx is cancelled. Intended to be run from one long-lived goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("component=cache action=sweeper_stopped")
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

// Stats summarizes the fallback backend contents.
func (s *Store) Stats() Stats {
	total, expired := s.mem.stats()
	return Stats{
		FallbackMode:   s.Fallback(),
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
	}
}

// Close releases the Redis connection if one is live.
func (s *Store) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

// Key joins parts into a namespaced store key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
