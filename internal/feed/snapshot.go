package feed

import (
	"context"
	"time"

	"wallfeed/internal/cache"
	"wallfeed/internal/models"
)

// CacheSnapshots stores the working set in Redis through the cache helpers.
// Without a Redis client every call is a no-op and Load reports a miss.
type CacheSnapshots struct {
	TTL time.Duration
}

func (s CacheSnapshots) Load(ctx context.Context) ([]models.Post, bool, error) {
	var posts []models.Post
	found, err := cache.GetJSON(ctx, cache.FeedSnapshotKey, &posts)
	if err != nil || !found {
		return nil, false, err
	}
	return posts, true, nil
}

func (s CacheSnapshots) Save(ctx context.Context, posts []models.Post) error {
	return cache.SetJSON(ctx, cache.FeedSnapshotKey, posts, s.TTL)
}
