package cache

import (
	"context"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// RunCleanup sweeps every cache once per interval until ctx is done. report,
// when non-nil, receives the number of entries each sweep removed. A
// non-positive interval disables cleanup.
func RunCleanup(ctx context.Context, interval time.Duration, report func(removed int), caches ...Cleaner) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range caches {
				removed += c.CleanExpired()
			}
			if report != nil {
				report(removed)
			}
		case <-ctx.Done():
			return
		}
	}
}
