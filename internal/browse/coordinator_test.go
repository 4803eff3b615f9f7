package browse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallfeed/internal/layout"
	"wallfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	valid bool
	token string
}

func (s *stubSession) Valid(context.Context) bool { return s.valid }
func (s *stubSession) Token(context.Context) (string, error) {
	if !s.valid {
		return "", models.NewAuthError("not signed in", nil)
	}
	return s.token, nil
}

type stubFeed struct {
	posts []models.Post
	err   error
	calls int
}

func (f *stubFeed) Refresh(context.Context) ([]models.Post, error) {
	f.calls++
	return f.CurrentSet(), f.err
}

func (f *stubFeed) CurrentSet() []models.Post {
	return append([]models.Post(nil), f.posts...)
}

type stubUploads struct {
	MyUploadsFunc func(ctx context.Context, token string) ([]models.Post, error)
}

func (s stubUploads) MyUploads(ctx context.Context, token string) ([]models.Post, error) {
	return s.MyUploadsFunc(ctx, token)
}

func feedPosts() []models.Post {
	return []models.Post{
		{ID: "1", Title: "Nature View", Genre: "nature", DisplayHeight: 250},
		{ID: "2", Title: "City Lights", Genre: "cityscape", DisplayHeight: 200},
		{ID: "3", Title: "Forest", Genre: "nature", DisplayHeight: 300},
		{ID: "4", Title: "Mountain", Genre: "mountains", DisplayHeight: 220},
		{ID: "5", Title: "Lake", Genre: "nature", DisplayHeight: 260},
	}
}

func newCoordinator(t *testing.T, session *stubSession, feed *stubFeed, uploads Uploads) *Coordinator {
	t.Helper()
	engine, err := layout.NewEngine(2, 10)
	require.NoError(t, err)
	return NewCoordinator(session, feed, uploads, engine)
}

func viewIDs(v View) []string {
	out := []string{}
	for _, p := range v.Posts {
		out = append(out, p.ID)
	}
	return out
}

func TestCoordinator_InitialViewHasEmptyColumns(t *testing.T) {
	c := newCoordinator(t, &stubSession{}, &stubFeed{}, nil)
	v := c.View()
	assert.Len(t, v.Columns, 2)
	assert.Empty(t, v.Posts)
}

func TestCoordinator_SessionChangeRefreshes(t *testing.T) {
	feed := &stubFeed{posts: feedPosts()}
	c := newCoordinator(t, &stubSession{valid: true, token: "tok"}, feed, nil)

	v, err := c.OnSessionChange(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Authenticated)
	assert.Equal(t, 1, feed.calls)
	assert.Len(t, v.Posts, 5)
	require.Len(t, v.Columns, 2)
	assert.Len(t, v.Columns[0].Tiles, 3)
	assert.Len(t, v.Columns[1].Tiles, 2)
}

func TestCoordinator_FiltersCompose(t *testing.T) {
	c := newCoordinator(t, &stubSession{}, &stubFeed{posts: feedPosts()}, nil)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	v := c.OnQueryChange("mount")
	assert.Equal(t, []string{"4"}, viewIDs(v))

	c.OnQueryChange("")
	v = c.OnGenreChange("Nature")
	assert.Equal(t, []string{"1", "3", "5"}, viewIDs(v))
	assert.Equal(t, "nature", v.Genre)

	v = c.OnQueryChange("e")
	assert.Equal(t, []string{"1", "3", "5"}, viewIDs(v))

	v = c.OnQueryChange("for")
	assert.Equal(t, []string{"3"}, viewIDs(v))
	assert.Len(t, v.Columns[0].Tiles, 1)
	assert.Empty(t, v.Columns[1].Tiles)

	v = c.OnGenreChange("")
	assert.Equal(t, []string{"3"}, viewIDs(v))
}

func TestCoordinator_RefreshFailureKeepsView(t *testing.T) {
	feed := &stubFeed{posts: feedPosts()}
	c := newCoordinator(t, &stubSession{}, feed, nil)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	c.OnQueryChange("lake")

	feed.err = models.NewNetworkError("list posts", errors.New("offline"))
	v, err := c.Refresh(context.Background())
	assert.True(t, models.IsNetwork(err))
	assert.Equal(t, []string{"5"}, viewIDs(v))
	assert.Equal(t, "lake", v.Query)
}

func TestCoordinator_Authenticated(t *testing.T) {
	session := &stubSession{valid: false}
	c := newCoordinator(t, session, &stubFeed{}, nil)

	assert.False(t, c.Authenticated(context.Background()))
	session.valid = true
	assert.True(t, c.Authenticated(context.Background()))
	assert.True(t, c.View().Authenticated)
}

func TestCoordinator_MyUploads(t *testing.T) {
	uploads := stubUploads{MyUploadsFunc: func(_ context.Context, token string) ([]models.Post, error) {
		assert.Equal(t, "tok", token)
		return []models.Post{{ID: "u1", DisplayHeight: 200}, {ID: "u2", DisplayHeight: 240}}, nil
	}}
	session := &stubSession{valid: true, token: "tok"}
	c := newCoordinator(t, session, &stubFeed{}, uploads)

	cols, err := c.MyUploads(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "u1", cols[0].Tiles[0].Post.ID)
	assert.Equal(t, "u2", cols[1].Tiles[0].Post.ID)

	session.valid = false
	_, err = c.MyUploads(context.Background())
	assert.True(t, models.IsAuth(err))
}

// gatedFeed holds Refresh until release is closed.
type gatedFeed struct {
	started chan struct{}
	release chan struct{}
	posts   []models.Post

	mu      sync.Mutex
	applied bool
}

func (f *gatedFeed) Refresh(context.Context) ([]models.Post, error) {
	close(f.started)
	<-f.release
	f.mu.Lock()
	f.applied = true
	f.mu.Unlock()
	return f.CurrentSet(), nil
}

func (f *gatedFeed) CurrentSet() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.applied {
		return nil
	}
	return append([]models.Post(nil), f.posts...)
}

func TestCoordinator_QueryChangeDuringRefreshIsAppliedOnResolve(t *testing.T) {
	feed := &gatedFeed{
		started: make(chan struct{}),
		release: make(chan struct{}),
		posts:   feedPosts(),
	}
	engine, err := layout.NewEngine(2, 10)
	require.NoError(t, err)
	c := NewCoordinator(&stubSession{}, feed, nil, engine)

	type result struct {
		view View
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := c.Refresh(context.Background())
		done <- result{v, err}
	}()

	<-feed.started
	mid := c.OnQueryChange("mount")
	assert.Empty(t, mid.Posts, "nothing fetched yet")

	close(feed.release)
	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not resolve")
	}

	require.NoError(t, res.err)
	assert.Equal(t, "mount", res.view.Query)
	assert.Equal(t, []string{"4"}, viewIDs(res.view))
	assert.Equal(t, []string{"4"}, viewIDs(c.View()))
}
