package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// user is the caller identity asserted by the upstream auth proxy.
type user struct {
	ID    string
	Admin bool
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.Info("http request",
			zap.String("op", "server.loggingMiddleware"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// identity requires the user id header and stores the caller in the context.
func (h *handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(constants.HeaderUserID))
		if id == "" {
			h.respondErrorWithOp(w, http.StatusUnauthorized, "missing user identity", "server.identity")
			return
		}
		role := strings.TrimSpace(r.Header.Get(constants.HeaderUserRole))
		u := user{ID: id, Admin: strings.EqualFold(role, constants.RoleAdmin)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, u)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"admin role required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) user {
	u, _ := r.Context().Value(userContextKey).(user)
	return u
}
