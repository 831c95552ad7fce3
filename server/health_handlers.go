package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports 503 when the session store cannot be reached
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()

			if err := s.deps.Store.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("[HealthHandler] session store unreachable")
				writeText(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		writeText(w, http.StatusOK, "ok")
	}
}
