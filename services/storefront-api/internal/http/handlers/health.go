package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
)

func Root(w http.ResponseWriter, r *http.Request) {
	render.Text(w, http.StatusOK, "Hello Hero Runner!")
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers ok while storage responds to a ping.
type Health struct {
	Storage Pinger
	Log     zerolog.Logger
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Storage.Ping(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("health: storage ping failed")
		render.Text(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	render.Text(w, http.StatusOK, "ok")
}
