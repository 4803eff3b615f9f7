// Package feed owns the in-memory working set of posts shown in the grid.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"wallfeed/internal/models"
	"wallfeed/internal/observability"

	"github.com/samber/lo"
)

// PostSource fetches the full candidate collection in one request.
type PostSource interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
}

// SnapshotStore keeps the last good working set across restarts.
type SnapshotStore interface {
	Load(ctx context.Context) ([]models.Post, bool, error)
	Save(ctx context.Context, posts []models.Post) error
}

// Option configures a Repository.
type Option func(*Repository)

// WithRand sets the random source used for display heights and shuffling.
func WithRand(r *rand.Rand) Option {
	return func(repo *Repository) {
		repo.rnd = r
	}
}

// WithSnapshots enables snapshot persistence of the working set.
func WithSnapshots(s SnapshotStore) Option {
	return func(repo *Repository) {
		repo.snapshots = s
	}
}

// Repository fetches, decorates and shuffles posts, and keeps the result as
// the working set. It is the only writer of the working set.
type Repository struct {
	source    PostSource
	snapshots SnapshotStore

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	posts   []models.Post
	started uint64
	applied uint64
}

// NewRepository builds a Repository reading from source.
func NewRepository(source PostSource, opts ...Option) *Repository {
	r := &Repository{
		source: source,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh replaces the working set with a freshly fetched and shuffled
// collection. On failure the previous working set is kept and returned along
// with the error. A refresh that resolves after a newer one was applied is
// dropped.
func (r *Repository) Refresh(ctx context.Context) ([]models.Post, error) {
	r.mu.Lock()
	r.started++
	gen := r.started
	r.mu.Unlock()

	fetched, err := r.source.ListPosts(ctx)
	if err != nil {
		observability.FeedRefreshes.WithLabelValues("error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "feed refresh failed, keeping previous working set",
			slog.String("error", err.Error()),
		)
		r.restoreSnapshot(ctx)
		return r.CurrentSet(), fmt.Errorf("refresh feed: %w", err)
	}

	posts := r.prepare(fetched)

	r.mu.Lock()
	if gen < r.applied {
		r.mu.Unlock()
		observability.FeedRefreshes.WithLabelValues("stale").Inc()
		return r.CurrentSet(), nil
	}
	r.posts = posts
	r.applied = gen
	r.mu.Unlock()

	observability.FeedRefreshes.WithLabelValues("ok").Inc()
	observability.FeedWorkingSetSize.Set(float64(len(posts)))

	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, posts); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to save feed snapshot",
				slog.String("error", err.Error()),
			)
		}
	}

	return slices.Clone(posts), nil
}

// CurrentSet returns a copy of the working set.
func (r *Repository) CurrentSet() []models.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.posts)
}

func (r *Repository) prepare(fetched []models.Post) []models.Post {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()

	posts := lo.Map(fetched, func(p models.Post, _ int) models.Post {
		if !p.HasDisplayHeight() {
			p.DisplayHeight = models.MinDisplayHeight + r.rnd.IntN(models.MaxDisplayHeight-models.MinDisplayHeight+1)
		}
		return p
	})
	shuffle(posts, r.rnd)
	return posts
}

// shuffle is a Fisher-Yates permutation driven by rnd.
func shuffle(posts []models.Post, rnd *rand.Rand) {
	for i := len(posts) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		posts[i], posts[j] = posts[j], posts[i]
	}
}

func (r *Repository) restoreSnapshot(ctx context.Context) {
	if r.snapshots == nil {
		return
	}
	r.mu.RLock()
	empty := len(r.posts) == 0
	r.mu.RUnlock()
	if !empty {
		return
	}

	posts, found, err := r.snapshots.Load(ctx)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to load feed snapshot",
			slog.String("error", err.Error()),
		)
		return
	}
	if !found || len(posts) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.posts) > 0 {
		return
	}
	r.posts = posts
	observability.FeedRefreshes.WithLabelValues("snapshot").Inc()
	observability.FeedWorkingSetSize.Set(float64(len(posts)))
}
