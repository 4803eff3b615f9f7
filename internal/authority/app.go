package authority

import (
	"errors"
	"log/slog"
	"time"

	"wallfeed/internal/handlers"
	"wallfeed/internal/models"
	"wallfeed/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// Config configures the authority HTTP app.
type Config struct {
	JWTSecret string
	UploadDir string
	// PublicURL prefixes stored image URLs. Empty means the request's base URL.
	PublicURL string
	// Registry receives the HTTP metrics. Nil means a fresh registry.
	Registry prometheus.Registerer
	Probes   *handlers.Handlers
	Now      func() time.Time
}

// NewApp builds the fiber app serving the post endpoints. Uploaded images are
// written to cfg.UploadDir on fs and served back under /media.
func NewApp(cfg Config, repo PostRepository, fs afero.Fs) *fiber.App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}

	app := fiber.New(fiber.Config{
		AppName:      "wallfeed authority",
		BodyLimit:    maxUploadBytes + 1<<20,
		ErrorHandler: errorHandler,
	})

	h := &Handlers{
		repo:      repo,
		fs:        fs,
		uploadDir: cfg.UploadDir,
		publicURL: cfg.PublicURL,
		now:       cfg.Now,
	}

	prom := fiberprometheus.NewWithRegistry(cfg.Registry, "wallfeed-authority", "wallfeed", "http", nil)

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(prom.Middleware)

	prom.RegisterAt(app, "/metrics")

	if cfg.Probes != nil {
		app.Get("/health", adaptor.HTTPHandlerFunc(cfg.Probes.Health))
		app.Get("/ping", adaptor.HTTPHandlerFunc(cfg.Probes.Ping))
	}

	app.Use("/media", filesystem.New(filesystem.Config{
		Root: afero.NewHttpFs(fs).Dir(cfg.UploadDir),
	}))

	auth := AuthRequired(cfg.JWTSecret)
	post := app.Group("/post")
	post.Get("/all", h.ListPosts)
	post.Post("/getPost", auth, h.MyUploads)
	post.Post("/likeStatus", auth, h.LikeStatus)
	post.Post("/toggleLike", auth, h.ToggleLike)
	post.Post("/download", auth, h.RecordDownload)
	post.Post("/create", auth, h.CreatePost)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// requestLogger logs one line per request through the global logger.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
		}
		if uid := UserID(c); uid != "" {
			fields = append(fields, slog.String("user_id", uid))
		}
		if rid := c.Locals("requestid"); rid != nil {
			fields = append(fields, slog.Any("request_id", rid))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.Error("request failed", fields...)
		} else {
			observability.GlobalLogger.Debug("request processed", fields...)
		}
		return err
	}
}
