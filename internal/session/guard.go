// Package session owns the single bearer credential of the client and decides
// locally, without a network call, whether it is still usable.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wallfeed/internal/models"
	"wallfeed/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token has no exp claim")

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// Guard gates access to the stored credential.
type Guard struct {
	mu    sync.Mutex
	store CredentialStore
	now   func() time.Time
}

// NewGuard returns a Guard backed by store.
func NewGuard(store CredentialStore, opts ...Option) *Guard {
	g := &Guard{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Expiry reads the exp claim of a JWT. The signature is not verified: that is
// the authority's job.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errNoExpiry
	}
	return exp.Time, nil
}

// IsValid reports whether token is well-formed and expires strictly after now.
// Both sides are compared in whole seconds; a token expiring this second is expired.
func (g *Guard) IsValid(token string) bool {
	if token == "" {
		return false
	}
	exp, err := Expiry(token)
	if err != nil {
		return false
	}
	return exp.Unix() > g.now().Unix()
}

// Set stores token as the current credential. Tokens that are already invalid
// are rejected and the previous credential is left untouched.
func (g *Guard) Set(ctx context.Context, token string) error {
	if !g.IsValid(token) {
		return models.NewAuthError("refusing to store an invalid or expired credential", nil)
	}
	exp, _ := Expiry(token)
	ttl := exp.Sub(g.now())

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(ctx, token, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Token returns the stored credential when it is still valid. A stored
// credential that turns out to be invalid is deleted before returning.
func (g *Guard) Token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	token, err := g.store.Load(ctx)
	if err != nil {
		return "", models.NewAuthError("credential store unavailable", err)
	}
	if token == "" {
		return "", models.NewAuthError("not signed in", nil)
	}
	if !g.IsValid(token) {
		if err := g.store.Delete(ctx); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to delete expired credential",
				slog.String("error", err.Error()))
		}
		return "", models.NewAuthError("session expired", nil)
	}
	return token, nil
}

// Valid reports whether a usable credential is stored.
func (g *Guard) Valid(ctx context.Context) bool {
	_, err := g.Token(ctx)
	return err == nil
}

// Clear removes the stored credential.
func (g *Guard) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Delete(ctx); err != nil {
		observability.GlobalLogger.Warn("failed to clear credential", slog.String("error", err.Error()))
	}
}
