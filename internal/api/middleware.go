package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	principalKey
)

// HealthPath is served without authentication.
const HealthPath = "/_talentflow/health"

// CorrelationID returns the correlation ID from the request context.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// Recovery returns middleware that recovers from panics and returns a 500
// error envelope.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(log.Fields{
						"error":  rec,
						"method": r.Method,
						"path":   r.URL.Path,
					}).Error("panic recovered")
					WriteError(w, http.StatusInternalServerError, NewInternalError(CorrelationID(r.Context())))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID returns middleware that generates a UUID v4 correlation ID, stores
// it in the request context, and adds it to the response headers.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			ctx := context.WithValue(r.Context(), correlationIDKey, id)
			w.Header().Set("X-Correlation-Id", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth returns middleware that requires a valid bearer token and stores the
// caller's Principal in the request context. A nil authenticator lets every
// request through without a principal.
func Auth(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || r.URL.Path == HealthPath {
				next.ServeHTTP(w, r)
				return
			}

			p, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("authentication failed")
				WriteError(w, http.StatusUnauthorized,
					newError(CategoryUnauthorized, "Authentication credentials not found or invalid", CorrelationID(r.Context())))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// JSONContentType returns middleware that sets the Content-Type header to
// application/json on all responses.
func JSONContentType() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

// WriteHeader captures the status code and delegates to the wrapped writer.
func (sw *statusWriter) WriteHeader(code int) {
	sw.code = code
	sw.ResponseWriter.WriteHeader(code)
}

// Logging returns middleware that logs each request through logger.
func Logging(logger log.FieldLogger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			entry := logger.WithFields(log.Fields{
				"method":        r.Method,
				"path":          r.URL.Path,
				"status":        sw.code,
				"duration":      time.Since(start).String(),
				"correlationId": CorrelationID(r.Context()),
			})
			if sw.code >= http.StatusInternalServerError {
				entry.Error("request")
				return
			}
			entry.Info("request")
		})
	}
}

// Chain applies middleware in order so that the first middleware is the
// outermost handler.
func Chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
