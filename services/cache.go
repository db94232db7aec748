package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
)

type CollectionFetcher interface {
	FetchCollection(ctx context.Context, userID string) (models.TicketCollection, error)
}

// CollectionCache is the single source every surface reads ticket
// collections from. Collections live in Redis keyed per user; in-process
// subscribers are notified after every invalidation-driven refetch, in
// registration order, so all surfaces observe the same sequence of states.
type CollectionCache struct {
	redis   *redis.Client
	fetcher CollectionFetcher
	pubnub  *pubnub.PubNub
	ttl     time.Duration

	mu   sync.Mutex
	subs map[string][]*collectionSub
}

type collectionSub struct {
	fn func(models.TicketCollection)
}

func NewCollectionCache(redisClient *redis.Client, fetcher CollectionFetcher, pn *pubnub.PubNub, ttl time.Duration) *CollectionCache {
	return &CollectionCache{
		redis:   redisClient,
		fetcher: fetcher,
		pubnub:  pn,
		ttl:     ttl,
		subs:    make(map[string][]*collectionSub),
	}
}

func collectionKey(userID string) string {
	return fmt.Sprintf("user-tickets:%s", userID)
}

// GetOrFetch returns the cached collection when fresh, otherwise fetches
// from the backend and populates the cache.
func (c *CollectionCache) GetOrFetch(ctx context.Context, userID string) (models.TicketCollection, error) {
	data, err := c.redis.Get(ctx, collectionKey(userID)).Bytes()
	if err == nil {
		var col models.TicketCollection
		if jsonErr := json.Unmarshal(data, &col); jsonErr == nil {
			monitoring.TrackCacheEvent("hit")
			return col, nil
		}
		slog.Warn("corrupt cache entry, refetching", "userID", userID)
	} else if err != redis.Nil {
		slog.Warn("cache read failed, refetching", "userID", userID, "error", err)
	}

	monitoring.TrackCacheEvent("miss")
	return c.refresh(ctx, userID)
}

// Invalidate marks the user's collection stale and refetches it. This is a
// mandatory post-condition of every successful mutation, not an
// optimization, and it never runs before the remote success is confirmed.
func (c *CollectionCache) Invalidate(ctx context.Context, userID string) error {
	monitoring.TrackCacheEvent("invalidate")

	if err := c.redis.Del(ctx, collectionKey(userID)).Err(); err != nil {
		slog.Warn("cache delete failed", "userID", userID, "error", err)
	}

	col, err := c.refresh(ctx, userID)
	if err != nil {
		return err
	}

	c.notify(userID, col)
	c.publish(userID)
	return nil
}

// Subscribe registers fn for every refreshed collection of userID and
// returns the unsubscribe func.
func (c *CollectionCache) Subscribe(userID string, fn func(models.TicketCollection)) func() {
	sub := &collectionSub{fn: fn}

	c.mu.Lock()
	c.subs[userID] = append(c.subs[userID], sub)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.subs[userID]
		for i, s := range list {
			if s == sub {
				c.subs[userID] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func (c *CollectionCache) refresh(ctx context.Context, userID string) (models.TicketCollection, error) {
	start := time.Now()
	col, err := c.fetcher.FetchCollection(ctx, userID)
	if err != nil {
		return models.TicketCollection{}, err
	}
	monitoring.TrackCacheRefresh(time.Since(start))

	data, err := json.Marshal(col)
	if err != nil {
		return models.TicketCollection{}, err
	}
	if err := c.redis.Set(ctx, collectionKey(userID), data, c.ttl).Err(); err != nil {
		// The fetched collection is still returned; only the cache write failed.
		slog.Warn("cache write failed", "userID", userID, "error", err)
	}

	return col, nil
}

func (c *CollectionCache) notify(userID string, col models.TicketCollection) {
	c.mu.Lock()
	subs := make([]*collectionSub, len(c.subs[userID]))
	copy(subs, c.subs[userID])
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(col)
	}
}

func (c *CollectionCache) publish(userID string) {
	if c.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", userID)
	c.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":    "collection_invalidated",
			"user_id": userID,
		}).
		Execute()
}
