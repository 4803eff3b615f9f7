// Package browse wires the session, feed, filter and layout together through
// explicit transitions.
package browse

import (
	"context"
	"strings"
	"sync"

	"wallfeed/internal/layout"
	"wallfeed/internal/models"
	"wallfeed/internal/search"
)

// Session is the part of session.Guard the coordinator needs.
type Session interface {
	Valid(ctx context.Context) bool
	Token(ctx context.Context) (string, error)
}

// Feed is the part of feed.Repository the coordinator needs.
type Feed interface {
	Refresh(ctx context.Context) ([]models.Post, error)
	CurrentSet() []models.Post
}

// Uploads lists the posts of the signed-in user.
type Uploads interface {
	MyUploads(ctx context.Context, token string) ([]models.Post, error)
}

// View is what the grid renders.
type View struct {
	Authenticated bool
	Query         string
	Genre         string
	Posts         []models.Post
	Columns       []layout.Column
}

type Coordinator struct {
	session Session
	feed    Feed
	uploads Uploads
	engine  *layout.Engine

	mu   sync.Mutex
	view View
}

func NewCoordinator(session Session, feed Feed, uploads Uploads, engine *layout.Engine) *Coordinator {
	return &Coordinator{
		session: session,
		feed:    feed,
		uploads: uploads,
		engine:  engine,
		view:    View{Columns: engine.Arrange(nil)},
	}
}

// OnSessionChange re-reads the session and refreshes the feed.
func (c *Coordinator) OnSessionChange(ctx context.Context) (View, error) {
	authed := c.session.Valid(ctx)
	c.mu.Lock()
	c.view.Authenticated = authed
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh fetches the feed and re-derives the view from whatever working set
// results. A failed refresh still returns a view built from the previous set.
func (c *Coordinator) Refresh(ctx context.Context) (View, error) {
	posts, err := c.feed.Refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recomputeLocked(posts)
	return c.snapshotLocked(), err
}

// OnQueryChange re-filters the current working set by title.
func (c *Coordinator) OnQueryChange(query string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Query = query
	c.recomputeLocked(c.feed.CurrentSet())
	return c.snapshotLocked()
}

// OnGenreChange re-filters the current working set by genre. An empty genre
// clears the chip.
func (c *Coordinator) OnGenreChange(genre string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Genre = strings.ToLower(strings.TrimSpace(genre))
	c.recomputeLocked(c.feed.CurrentSet())
	return c.snapshotLocked()
}

// Authenticated decides the signed-in branch. Expired credentials are
// cleared by the session as a side effect.
func (c *Coordinator) Authenticated(ctx context.Context) bool {
	authed := c.session.Valid(ctx)
	c.mu.Lock()
	c.view.Authenticated = authed
	c.mu.Unlock()
	return authed
}

// MyUploads lists the signed-in user's posts laid out like the main grid.
func (c *Coordinator) MyUploads(ctx context.Context) ([]layout.Column, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := c.uploads.MyUploads(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.engine.Arrange(posts), nil
}

// View returns the last computed view.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) recomputeLocked(set []models.Post) {
	posts := search.Apply(search.ByGenre(set, c.view.Genre), c.view.Query)
	c.view.Posts = posts
	c.view.Columns = c.engine.Arrange(posts)
}

func (c *Coordinator) snapshotLocked() View {
	v := c.view
	v.Posts = append([]models.Post(nil), c.view.Posts...)
	v.Columns = append([]layout.Column(nil), c.view.Columns...)
	return v
}
