package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallfeed/internal/config"
	"wallfeed/internal/engagement"
	"wallfeed/internal/layout"
	"wallfeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		APIBaseURL:     "http://localhost:8000",
		RequestTimeout: time.Second,
		LayoutColumns:  2,
		LayoutGap:      16,
		SessionStore:   config.SessionStoreMemory,
		DBDriver:       "sqlite",
		JWTSecret:      "dev",
	}
}

func TestParseFlags_OverridesOnlyChangedValues(t *testing.T) {
	o, rest, fs, err := parseFlags([]string{"--columns", "3", "-g", "dark", "feed"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"feed"}, rest)
	assert.Equal(t, "dark", o.genre)

	cfg := baseConfig()
	require.NoError(t, applyOverrides(cfg, o, fs))
	assert.Equal(t, 3, cfg.LayoutColumns)
	assert.Equal(t, float64(16), cfg.LayoutGap)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
}

func TestParseFlags_InvalidOverride(t *testing.T) {
	o, _, fs, err := parseFlags([]string{"--columns", "0", "feed"}, io.Discard)
	require.NoError(t, err)
	assert.Error(t, applyOverrides(baseConfig(), o, fs))
}

func TestParseFlags_Help(t *testing.T) {
	_, _, _, err := parseFlags([]string{"--help"}, io.Discard)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestRenderGrid(t *testing.T) {
	cols, err := layout.Layout([]models.Post{
		{ID: "p1", Title: "Fjord", Author: "ana", DisplayHeight: 200},
		{ID: "p2", Title: "Neon", Author: "bo", DisplayHeight: 320},
		{ID: "p3", Title: "Dune", Author: "cy", DisplayHeight: 240},
	}, 2, 10)
	require.NoError(t, err)

	out := renderGrid(cols, 80)
	for _, s := range []string{"Fjord", "Neon", "Dune", "@ana"} {
		assert.Contains(t, out, s)
	}
}

func TestRenderGrid_Empty(t *testing.T) {
	cols, err := layout.Layout(nil, 3, 0)
	require.NoError(t, err)
	assert.Contains(t, renderGrid(cols, 80), "no posts")
}

func TestRenderState(t *testing.T) {
	out := renderState(engagement.State{PostID: "p1", Phase: engagement.Ready, LikesCount: 4, Downloaded: true, SavedPath: "dl/Downloads/a.jpg"})
	assert.Contains(t, out, "4 likes")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "dl/Downloads/a.jpg")
}

func TestLabelled(t *testing.T) {
	assert.Equal(t, "", labelled("genre", ""))
	assert.Equal(t, "genre: dark", labelled("genre", "dark"))
}

func credential(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post/all" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"posts":[{"id":"p1","title":"Fjord","image_url":"http://x/a.jpg","author":"ana","likes_count":0,"created_at":"2025-01-01T00:00:00Z"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_FeedWithExpiredEnvTokenBrowsesAnonymously(t *testing.T) {
	t.Cleanup(viper.Reset)
	srv := feedServer(t)
	t.Setenv("WALLFEED_TOKEN", credential(t, time.Now().Add(-time.Hour)))

	var out bytes.Buffer
	require.NoError(t, run([]string{"--api", srv.URL, "feed"}, &out))
	assert.Contains(t, out.String(), "Fjord")
	assert.Contains(t, out.String(), "anonymous")
}

func TestRun_LoginStillRejectsExpiredCredential(t *testing.T) {
	t.Cleanup(viper.Reset)
	srv := feedServer(t)
	t.Setenv("WALLFEED_TOKEN", "")

	var out bytes.Buffer
	err := run([]string{"--api", srv.URL, "login", credential(t, time.Now().Add(-time.Hour))}, &out)
	require.Error(t, err)
	assert.True(t, models.IsAuth(err))
}

func TestRun_MemoryStoreHint(t *testing.T) {
	srv := feedServer(t)
	t.Setenv("WALLFEED_TOKEN", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"login", []string{"login", credential(t, time.Now().Add(time.Hour))}, "signed in"},
		{"logout", []string{"logout"}, "signed out"},
		{"whoami", []string{"whoami"}, "not signed in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			var out bytes.Buffer
			require.NoError(t, run(append([]string{"--api", srv.URL}, tt.args...), &out))
			assert.Contains(t, out.String(), tt.want)
			assert.Contains(t, out.String(), "--session-store redis")
		})
	}
}
