// Package handlers serves the liveness and readiness probes of the development
// authority.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// RedisClient is the minimal interface our handlers expect.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Redis RedisClient
	DB    Pinger
}

const (
	serviceName    = "wallfeed-authority"
	healthCacheKey = "wallfeed:health"
)

var healthResponse = []byte(`{"status":"ok","service":"wallfeed-authority"}`)
var pingResponse = []byte(`{"message": "pong"}`)

type healthStatus struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database,omitempty"`
}

// Health reports ok when the database answers. Only healthy answers are cached.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, healthCacheKey); err == nil {
			writeJSON(w, http.StatusOK, []byte(cached))
			return
		}
	}

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(pingCtx); err != nil {
			body, _ := json.Marshal(healthStatus{Status: "degraded", Service: serviceName, Database: err.Error()})
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	if h.Redis != nil {
		// set cache best-effort
		_ = h.Redis.Set(ctx, healthCacheKey, string(healthResponse), 5*time.Second)
	}
	writeJSON(w, http.StatusOK, healthResponse)
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("write error: %v", err)
	}
}
