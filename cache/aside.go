// ABOUTME: Explicit cache-aside helper: callers name the key and TTL at the call
// ABOUTME: site, with JSON serialization and fall-through to the fetch function.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Aside returns the cached value for key, or invokes fetch, caches its result
// with the given TTL, and returns it. A corrupt cached value is treated as a
// miss. A fetch error is returned without caching anything.
func Aside[T any](ctx context.Context, store *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if data, ok := store.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		log.Printf("component=cache action=corrupt_entry key=%s", key)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("component=cache action=marshal_failed key=%s err=%v", key, err)
		return v, nil
	}
	_ = store.Set(ctx, key, data, ttl)
	return v, nil
}
