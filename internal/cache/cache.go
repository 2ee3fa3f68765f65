// Package cache holds the in-process caches used in front of the store.
package cache

import (
	"context"
	"time"
)

// Cache is a keyed cache whose entries may expire.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Purge()
	Len() int
}

// Cleaner is implemented by caches that can drop expired entries eagerly.
type Cleaner interface {
	CleanExpired() int
}

// RunJanitor calls CleanExpired on every cleaner each interval until ctx is
// done. It blocks; run it in its own goroutine.
func RunJanitor(ctx context.Context, interval time.Duration, cleaners ...Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range cleaners {
				c.CleanExpired()
			}
		case <-ctx.Done():
			return
		}
	}
}
