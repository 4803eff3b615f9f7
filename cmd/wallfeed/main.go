// wallfeed is a terminal client for the wallpaper feed: it renders the
// masonry grid, filters it, and likes, downloads and uploads posts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"wallfeed/internal/browse"
	"wallfeed/internal/cache"
	"wallfeed/internal/config"
	"wallfeed/internal/engagement"
	"wallfeed/internal/feed"
	"wallfeed/internal/layout"
	"wallfeed/internal/media"
	"wallfeed/internal/models"
	"wallfeed/internal/observability"
	"wallfeed/internal/remote"
	"wallfeed/internal/session"
	"wallfeed/internal/upload"
	redispkg "wallfeed/pkg/redis"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	api          string
	columns      int
	gap          float64
	sessionStore string
	logLevel     string
	profile      string
	token        string
	query        string
	genre        string
	title        string
	width        int
}

func parseFlags(args []string, out io.Writer) (*options, []string, *pflag.FlagSet, error) {
	var o options
	fs := pflag.NewFlagSet("wallfeed", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.api, "api", "", "remote authority base URL (overrides API_BASE_URL)")
	fs.IntVar(&o.columns, "columns", 0, "number of grid columns (overrides LAYOUT_COLUMNS)")
	fs.Float64Var(&o.gap, "gap", 0, "vertical gap between tiles (overrides LAYOUT_GAP)")
	fs.StringVar(&o.sessionStore, "session-store", "", "memory or redis (overrides SESSION_STORE)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	fs.StringVar(&o.profile, "profile", "default", "session profile name for the redis store")
	fs.StringVar(&o.token, "token", os.Getenv("WALLFEED_TOKEN"), "bearer credential for this run")
	fs.StringVarP(&o.query, "query", "q", "", "title search")
	fs.StringVarP(&o.genre, "genre", "g", "", "genre filter")
	fs.StringVar(&o.title, "title", "", "title of an uploaded post")
	fs.IntVar(&o.width, "width", 100, "terminal width used for the grid")
	fs.Usage = func() {
		fmt.Fprintf(out, `Usage: wallfeed [flags] <command> [args]

Commands:
  feed               refresh and render the grid (--query, --genre)
  mine               render your uploads
  status <post-id>   show the like status of a post
  like <post-id>     toggle your like on a post
  download <post-id> save a post's image into the Downloads album
  upload <file>      publish an image (--title, --genre)
  login <token>      store a credential
  logout             forget the stored credential
  whoami             show the session state

Flags:
%s`, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	return &o, fs.Args(), fs, nil
}

func applyOverrides(cfg *config.Config, o *options, fs *pflag.FlagSet) error {
	if fs.Changed("api") {
		cfg.APIBaseURL = o.api
	}
	if fs.Changed("columns") {
		cfg.LayoutColumns = o.columns
	}
	if fs.Changed("gap") {
		cfg.LayoutGap = o.gap
	}
	if fs.Changed("session-store") {
		cfg.SessionStore = strings.ToLower(strings.TrimSpace(o.sessionStore))
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg.Validate()
}

// client holds the wired core for one invocation.
type client struct {
	out    io.Writer
	width  int
	guard  *session.Guard
	remote *remote.Client
	feed   *feed.Repository
	browse *browse.Coordinator
	engage *engagement.Controller
	pub    *upload.Publisher

	// set when credentials do not outlive the process
	storeHint string

	closers []func()
}

func newClient(ctx context.Context, cfg *config.Config, o *options, out io.Writer) (*client, error) {
	c := &client{out: out, width: o.width}

	var store session.CredentialStore = session.NewMemoryStore()
	if cfg.SessionStore == config.SessionStoreRedis {
		rc := redispkg.NewAdapter(redispkg.NewClient(cfg.RedisURL))
		c.closers = append(c.closers, func() { _ = rc.Close() })
		store = session.NewRedisStore(rc, o.profile)

		cache.InitRedis(cfg.RedisURL)
		c.closers = append(c.closers, cache.Close)
	} else {
		c.storeHint = "session store is memory, the credential is forgotten when this command exits; use --session-store redis to keep it"
	}
	c.guard = session.NewGuard(store)
	if o.token != "" {
		if err := c.guard.Set(ctx, o.token); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "ignoring unusable credential, continuing signed out",
				slog.String("error", err.Error()))
			c.guard.Clear()
		}
	}

	opts := remote.DefaultOptions
	opts.Timeout = cfg.RequestTimeout
	opts.RetryCount = cfg.RetryCount
	c.remote = remote.NewClient(cfg.APIBaseURL, opts)
	c.closers = append(c.closers, func() { _ = c.remote.Close() })

	engine, err := layout.NewEngine(cfg.LayoutColumns, cfg.LayoutGap)
	if err != nil {
		return nil, err
	}
	c.feed = feed.NewRepository(c.remote, feed.WithSnapshots(feed.CacheSnapshots{TTL: cfg.FeedSnapshotTTL}))
	c.browse = browse.NewCoordinator(c.guard, c.feed, c.remote, engine)

	saves := media.NewStore(afero.NewOsFs(), cfg.DownloadDir)
	c.engage = engagement.NewController(c.guard, c.remote, saves, media.FSPermissions{Store: saves},
		engagement.WithNotifyTimeout(cfg.RequestTimeout))
	c.closers = append(c.closers, c.engage.Close)

	c.pub = upload.NewPublisher(c.remote, c.guard)
	return c, nil
}

func (c *client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func run(args []string, out io.Writer) error {
	o, rest, fs, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, o, fs); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	observability.SetLevel(cfg.LogLevel)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "wallfeed",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())

	c, err := newClient(ctx, cfg, o, out)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.dispatch(ctx, o, rest[0], rest[1:])
}

func (c *client) dispatch(ctx context.Context, o *options, cmd string, args []string) error {
	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes exactly one argument", cmd)
		}
		return args[0], nil
	}

	switch cmd {
	case "feed":
		return c.showFeed(ctx, o.query, o.genre)
	case "mine":
		return c.showMine(ctx)
	case "status", "like", "download":
		id, err := arg()
		if err != nil {
			return err
		}
		return c.engagePost(ctx, cmd, id)
	case "upload":
		file, err := arg()
		if err != nil {
			return err
		}
		return c.upload(ctx, file, o.title, o.genre)
	case "login":
		token, err := arg()
		if err != nil {
			return err
		}
		if err := c.guard.Set(ctx, token); err != nil {
			return err
		}
		c.printStoreHint()
		return c.whoami(ctx)
	case "logout":
		c.guard.Clear()
		fmt.Fprintln(c.out, "signed out")
		c.printStoreHint()
		return nil
	case "whoami":
		c.printStoreHint()
		return c.whoami(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *client) showFeed(ctx context.Context, query, genre string) error {
	view, err := c.browse.OnSessionChange(ctx)
	if err != nil {
		if len(view.Posts) == 0 && len(c.feed.CurrentSet()) == 0 {
			return err
		}
		fmt.Fprintln(c.out, mutedStyle.Render("refresh failed, showing the last known feed: "+err.Error()))
	}
	if genre != "" {
		view = c.browse.OnGenreChange(genre)
	}
	if query != "" {
		view = c.browse.OnQueryChange(query)
	}

	account := "anonymous"
	if view.Authenticated {
		account = "signed in"
	}
	fmt.Fprintln(c.out, renderHeader("wallfeed",
		account,
		fmt.Sprintf("%d posts", len(view.Posts)),
		labelled("genre", view.Genre),
		labelled("search", view.Query),
	))
	fmt.Fprintln(c.out, renderGrid(view.Columns, c.width))
	return nil
}

func (c *client) showMine(ctx context.Context) error {
	cols, err := c.browse.MyUploads(ctx)
	if err != nil {
		return err
	}
	n := lo.SumBy(cols, func(col layout.Column) int { return len(col.Tiles) })
	fmt.Fprintln(c.out, renderHeader("my uploads", fmt.Sprintf("%d posts", n)))
	fmt.Fprintln(c.out, renderGrid(cols, c.width))
	return nil
}

func (c *client) findPost(ctx context.Context, id string) (models.Post, error) {
	if _, err := c.feed.Refresh(ctx); err != nil && len(c.feed.CurrentSet()) == 0 {
		return models.Post{}, err
	}
	post, ok := lo.Find(c.feed.CurrentSet(), func(p models.Post) bool { return p.ID == id })
	if !ok {
		return models.Post{}, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (c *client) engagePost(ctx context.Context, action, id string) error {
	post, err := c.findPost(ctx, id)
	if err != nil {
		return err
	}
	if err := c.engage.Select(ctx, post); err != nil {
		return err
	}

	switch action {
	case "like":
		err = c.engage.ToggleLike(ctx)
	case "download":
		err = c.engage.Download(ctx)
		c.engage.Wait()
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, titleStyle.Render(post.Title))
	fmt.Fprintln(c.out, renderState(c.engage.State()))
	return nil
}

func (c *client) upload(ctx context.Context, file, title, genre string) error {
	data, err := afero.ReadFile(afero.NewOsFs(), file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	post, err := c.pub.Publish(ctx, upload.Input{
		FileName: filepath.Base(file),
		Data:     data,
		Title:    title,
		Genre:    genre,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "published %s (%s)\n%s\n", titleStyle.Render(post.Title), post.ID, mutedStyle.Render(post.ImageURL))
	return nil
}

func (c *client) whoami(ctx context.Context) error {
	token, err := c.guard.Token(ctx)
	if err != nil {
		if models.IsAuth(err) {
			fmt.Fprintln(c.out, "not signed in")
			return nil
		}
		return err
	}
	exp, err := session.Expiry(token)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in, credential expires %s (in %s)\n",
		exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	return nil
}

func (c *client) printStoreHint() {
	if c.storeHint != "" {
		fmt.Fprintln(c.out, mutedStyle.Render(c.storeHint))
	}
}

func labelled(name, value string) string {
	if value == "" {
		return ""
	}
	return name + ": " + value
}
