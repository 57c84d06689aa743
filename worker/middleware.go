package worker

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// RequestIDHeader carries the request id on responses.
const RequestIDHeader = "X-Request-Id"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe assigns a request id, installs a request-scoped logger, and
// records the access log line and HTTP metrics for route.
func (s *Server) observe(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := clog.FromContext(r.Context()).With(
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
		)
		r = r.WithContext(clog.WithLogger(r.Context(), logger))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		logger.With("status", rec.status, "duration", elapsed.String()).Info("Handled request")
	}
}

// authenticate rejects requests without the bearer secret. It is a no-op
// when no secret is configured.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			next(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
			clog.FromContext(r.Context()).Warn("Rejected unauthenticated request")
			writeError(w, platformerrors.New(platformerrors.CodeUnauthorized, "unauthorized"))
			return
		}
		next(w, r)
	}
}
