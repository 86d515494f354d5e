package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFrom(r.Context())),
			)
		})
	}
}

func Recoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic",
						zap.Any("recovered", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestIDFrom(r.Context())),
						zap.Stack("stack"))
					writeError(w, http.StatusInternalServerError, apiErrors.StorageFailure, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter wires middleware and routes the way the server process runs them.
func NewRouter(h *Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(Recoverer(logger))
	RegisterRoutes(r, h)
	return r
}
