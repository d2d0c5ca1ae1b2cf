// Package cache holds the Redis-backed helpers of the API.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultViewTTL = time.Hour

// ViewDeduper remembers which viewer already counted a listing view.
// A nil client turns it into a pass-through that counts every view.
type ViewDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewViewDeduper(client redis.UniversalClient, ttl time.Duration) *ViewDeduper {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &ViewDeduper{client: client, ttl: ttl}
}

// NewClient returns nil when addr is empty so callers can run without Redis.
func NewClient(addr string) redis.UniversalClient {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

func viewKey(listingID uint64, viewer string) string {
	return fmt.Sprintf("listing:view:%d:%s", listingID, viewer)
}

// FirstView reports true the first time viewer is seen for the listing
// within the TTL window.
func (d *ViewDeduper) FirstView(ctx context.Context, listingID uint64, viewer string) (bool, error) {
	if d == nil || d.client == nil {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, viewKey(listingID, viewer), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe view: %w", err)
	}
	return ok, nil
}

func (d *ViewDeduper) Ping(ctx context.Context) error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Ping(ctx).Err()
}
