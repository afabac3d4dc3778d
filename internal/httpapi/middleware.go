package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qrinout/server/internal/monitoring"
)

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger, metrics *monitoring.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		dur := time.Since(start)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", dur))

		// This middleware wraps the router, so mux route metadata is not
		// in the request context here. Every route is a fixed path, so the
		// raw path is already the right label.
		if metrics != nil {
			metrics.HTTPDuration.
				WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.status)).
				Observe(dur.Seconds())
		}
	})
}

type contextKey string

const checkpointIDKey contextKey = "display_checkpoint_id"

// requireDisplaySession admits only requests carrying a valid bearer session
// issued by the display login endpoint. The checkpoint id travels in the
// request context.
func (s *Server) requireDisplaySession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing_session", "Authorization: Bearer <session> required")
			return
		}

		checkpointID, err := s.auth.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_session", "display session is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), checkpointIDKey, checkpointID)
		next(w, r.WithContext(ctx))
	}
}

// displaySessionCheckpoint returns the checkpoint id stored by
// requireDisplaySession. Empty when the middleware did not run.
func displaySessionCheckpoint(r *http.Request) string {
	id, _ := r.Context().Value(checkpointIDKey).(string)
	return id
}
