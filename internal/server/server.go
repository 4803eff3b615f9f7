// Package server runs the development authority: database, cache, seed data
// and the HTTP app, with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallfeed/internal/authority"
	"wallfeed/internal/cache"
	"wallfeed/internal/config"
	"wallfeed/internal/handlers"
	"wallfeed/internal/observability"
	"wallfeed/pkg/db"
	redispkg "wallfeed/pkg/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// package-level constructor hooks to make the server testable. Tests may
// replace these with fakes.
var (
	// newDB opens the *sql.DB handed to GORM in postgres mode.
	newDB = db.NewDB

	// newFs is the filesystem for uploads and seed files.
	newFs = afero.NewOsFs

	// registerer receives the HTTP metrics.
	registerer = prometheus.DefaultRegisterer
)

// devSubject is the user the logged development token is minted for.
const devSubject = "dev-user"

// Run starts the authority and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return RunWithQuit(cfg, quit)
}

// RunWithQuit behaves like Run but uses the provided quit channel instead of
// listening to OS signals. This makes it easier to drive shutdown in tests.
func RunWithQuit(cfg *config.Config, quit <-chan os.Signal) error {
	log := observability.GlobalLogger
	ctx := context.Background()

	var sqlDB *sql.DB
	if cfg.DBDriver == "postgres" {
		var err error
		if sqlDB, err = newDB(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	gdb, err := authority.Open(authority.DatabaseConfig{Driver: cfg.DBDriver, Path: cfg.DBPath, SQLDB: sqlDB})
	if err != nil {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return err
	}
	pool, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer pool.Close()

	cache.InitRedis(cfg.RedisURL)
	defer cache.Close()

	fs := newFs()
	entries, err := authority.LoadSeed(fs, cfg.SeedFile)
	if err != nil {
		return err
	}
	n, err := authority.Seed(ctx, gdb, entries, time.Now().UnixNano())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("Seeded posts", slog.Int("count", n))
	}

	probes := &handlers.Handlers{DB: pool}
	if rc := cache.GetClient(); rc != nil {
		probes.Redis = redispkg.NewAdapter(rc)
	}

	app := authority.NewApp(authority.Config{
		JWTSecret: cfg.JWTSecret,
		UploadDir: cfg.UploadDir,
		PublicURL: cfg.PublicURL,
		Registry:  registerer,
		Probes:    probes,
	}, authority.NewPostRepository(gdb), fs)

	if !cfg.IsProduction() {
		if token, err := authority.MintToken(cfg.JWTSecret, devSubject, 24*time.Hour); err == nil {
			log.Info("Development token", slog.String("subject", devSubject), slog.String("token", token))
		}
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", slog.String("addr", ln.Addr().String()))
		serveErr <- app.Listener(ln)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("Server shutdown error", slog.String("error", err.Error()))
	}
	// Serve may not have taken ownership of the listener yet.
	_ = ln.Close()
	return nil
}
