// Package engagement drives the like and download lifecycle of the post open
// in the detail view.
package engagement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wallfeed/internal/media"
	"wallfeed/internal/models"
	"wallfeed/internal/observability"
)

var (
	// ErrActionInFlight rejects an action while the same action is still pending.
	ErrActionInFlight = errors.New("engagement: action already in flight")
	// ErrNotReady rejects actions before the like status has been resolved.
	ErrNotReady = errors.New("engagement: status not resolved yet")
	// ErrNoSelection rejects actions when no post is selected.
	ErrNoSelection = errors.New("engagement: no post selected")
)

// Phase is the controller's position in the engagement state machine.
type Phase int

const (
	Idle Phase = iota
	FetchingStatus
	Ready
	Toggling
	Downloading
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FetchingStatus:
		return "fetching_status"
	case Ready:
		return "ready"
	case Toggling:
		return "toggling"
	case Downloading:
		return "downloading"
	default:
		return "unknown"
	}
}

// TokenSource yields the current credential or an AuthError.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Authority is the part of the remote contract the controller uses.
type Authority interface {
	LikeStatus(ctx context.Context, token, postID string) (models.LikeStatus, error)
	ToggleLike(ctx context.Context, token, postID string) (models.LikeStatus, error)
	RecordDownload(ctx context.Context, token, postID string) error
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// ImageSaver persists a downloaded image and returns where it went.
type ImageSaver interface {
	Save(name string, data []byte) (string, error)
}

// Permissions gates access to local storage.
type Permissions interface {
	RequestStorage(ctx context.Context) error
}

// State is a snapshot of the engagement of the selected post.
type State struct {
	PostID      string
	Phase       Phase
	Liked       bool
	LikesCount  int
	Toggling    bool
	Downloading bool
	Downloaded  bool
	SavedPath   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the clock used to name downloads.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithNotifyTimeout bounds the background download notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(c *Controller) { c.notifyTimeout = d }
}

// Controller is safe for concurrent use. Every response is checked against the
// selection it was issued for and dropped once another post is selected.
type Controller struct {
	tokens    TokenSource
	authority Authority
	saver     ImageSaver
	perms     Permissions

	now           func() time.Time
	notifyTimeout time.Duration

	mu          sync.Mutex
	gen         uint64
	selected    bool
	post        models.Post
	base        Phase
	liked       bool
	likes       int
	toggling    bool
	downloading bool
	downloaded  bool
	savedPath   string

	// post IDs with a toggle outstanding, kept across selections
	liking map[string]bool

	notifications sync.WaitGroup
}

func NewController(tokens TokenSource, authority Authority, saver ImageSaver, perms Permissions, opts ...Option) *Controller {
	c := &Controller{
		tokens:        tokens,
		authority:     authority,
		saver:         saver,
		perms:         perms,
		now:           time.Now,
		notifyTimeout: 10 * time.Second,
		liking:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current engagement.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	phase := c.base
	switch {
	case c.downloading:
		phase = Downloading
	case c.toggling:
		phase = Toggling
	}
	return State{
		PostID:      c.post.ID,
		Phase:       phase,
		Liked:       c.liked,
		LikesCount:  c.likes,
		Toggling:    c.toggling,
		Downloading: c.downloading,
		Downloaded:  c.downloaded,
		SavedPath:   c.savedPath,
	}
}

// resetLocked discards the current selection. Callers hold mu.
func (c *Controller) resetLocked() {
	c.gen++
	c.selected = false
	c.post = models.Post{}
	c.base = Idle
	c.liked = false
	c.likes = 0
	c.toggling = false
	c.downloading = false
	c.downloaded = false
	c.savedPath = ""
}

// Select opens post and resolves its like status. Without a valid credential
// it returns an AuthError and the controller stays idle. A failed status
// fetch is not returned: the post is shown as not liked.
func (c *Controller) Select(ctx context.Context, post models.Post) error {
	c.mu.Lock()
	c.resetLocked()
	gen := c.gen
	c.selected = true
	c.post = post
	c.base = FetchingStatus
	c.likes = post.LikesCount
	c.toggling = c.liking[post.ID]
	c.mu.Unlock()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.resetLocked()
		}
		c.mu.Unlock()
		observability.RecordEngagement("status", "auth")
		return err
	}

	status, err := c.authority.LikeStatus(ctx, token, post.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		observability.RecordEngagement("status", "stale")
		return nil
	}
	c.base = Ready
	if err != nil {
		c.liked = false
		observability.RecordEngagement("status", "error")
		observability.GlobalLogger.WarnContext(ctx, "like status unavailable, assuming not liked",
			slog.String("post_id", post.ID),
			slog.String("code", models.CodeOf(err)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	c.liked = status.Liked
	c.likes = status.LikesCount
	observability.RecordEngagement("status", "ok")
	return nil
}

// ToggleLike sends one toggle request and adopts the authority's answer. On
// failure the previous liked value is kept and the error is returned. A post
// has at most one toggle outstanding, even when it is closed and reselected.
func (c *Controller) ToggleLike(ctx context.Context) error {
	c.mu.Lock()
	if err := c.admitLocked(c.toggling || c.liking[c.post.ID]); err != nil {
		c.mu.Unlock()
		observability.RecordEngagement("like", "rejected")
		return err
	}
	c.toggling = true
	gen := c.gen
	postID := c.post.ID
	c.liking[postID] = true
	prev := c.liked
	c.mu.Unlock()

	token, err := c.tokens.Token(ctx)
	var status models.LikeStatus
	if err == nil {
		status, err = c.authority.ToggleLike(ctx, token, postID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.liking, postID)
	if c.gen != gen {
		if c.selected && c.post.ID == postID {
			c.toggling = false
		}
		observability.RecordEngagement("like", "stale")
		return err
	}
	c.toggling = false
	if err != nil {
		c.liked = prev
		observability.RecordEngagement("like", "error")
		return err
	}
	c.liked = status.Liked
	c.likes = status.LikesCount
	observability.RecordEngagement("like", "ok")
	return nil
}

// Download saves the selected post's image locally, then tells the authority
// about it in the background. The local save stands whatever the
// notification's outcome.
func (c *Controller) Download(ctx context.Context) error {
	c.mu.Lock()
	if err := c.admitLocked(c.downloading); err != nil {
		c.mu.Unlock()
		observability.RecordEngagement("download", "rejected")
		return err
	}
	c.downloading = true
	gen := c.gen
	post := c.post
	c.mu.Unlock()

	path, token, err := c.download(ctx, post)

	c.mu.Lock()
	current := c.gen == gen
	if current {
		c.downloading = false
		if err == nil {
			c.downloaded = true
			c.savedPath = path
		}
	}
	c.mu.Unlock()

	if err != nil {
		outcome := models.CodeOf(err)
		if outcome == "" {
			outcome = "error"
		}
		observability.RecordEngagement("download", outcome)
		return err
	}
	observability.RecordEngagement("download", "ok")
	c.notifyDownload(ctx, token, post.ID)
	return nil
}

func (c *Controller) download(ctx context.Context, post models.Post) (string, string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", "", err
	}
	if err := c.perms.RequestStorage(ctx); err != nil {
		return "", "", err
	}
	data, err := c.authority.FetchImage(ctx, post.ImageURL)
	if err != nil {
		return "", "", err
	}
	path, err := c.saver.Save(media.FileName(post.ImageURL, c.now()), data)
	if err != nil {
		return "", "", err
	}
	return path, token, nil
}

func (c *Controller) notifyDownload(ctx context.Context, token, postID string) {
	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
		defer cancel()

		fields := map[string]interface{}{"post_id": postID}
		observability.LogAsyncOperationStart(nctx, "record_download", fields)
		if err := c.authority.RecordDownload(nctx, token, postID); err != nil {
			observability.RecordEngagement("download_notify", "error")
			observability.LogAsyncOperationError(nctx, "record_download", err, fields)
			return
		}
		observability.RecordEngagement("download_notify", "ok")
		observability.LogAsyncOperationEnd(nctx, "record_download", fields)
	}()
}

// admitLocked applies the single-flight rule for one control. Callers hold mu.
func (c *Controller) admitLocked(inFlight bool) error {
	switch {
	case !c.selected:
		return ErrNoSelection
	case inFlight:
		return ErrActionInFlight
	case c.base != Ready:
		return ErrNotReady
	}
	return nil
}

// Close discards the selection. Responses still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Wait blocks until background download notifications have finished.
func (c *Controller) Wait() {
	c.notifications.Wait()
}
