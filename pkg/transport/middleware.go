package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/soapd/internal/id"
	"github.com/getmockd/soapd/pkg/httputil"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/tracing"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws to h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestID assigns every request an ID, echoes it in the response and puts
// a logger carrying it into the request context. The trace ID of a W3C
// traceparent header is logged too.
func RequestID(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := id.FromHeader(r.Header.Get(RequestIDHeader))
			w.Header().Set(RequestIDHeader, rid)

			ctx := tracing.Extract(r.Context(), r.Header)
			log := logging.FromContext(ctx, logger).With("requestId", rid)
			if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
				log = log.With("traceId", traceID)
			}
			next.ServeHTTP(w, r.WithContext(logging.NewContext(ctx, log)))
		})
	}
}

// AccessLog logs one line per request with status, size and duration.
func AccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// 500 carries ordinary SOAP faults.
			level := slog.LevelInfo
			if rec.status > http.StatusInternalServerError {
				level = slog.LevelError
			}
			logging.FromContext(r.Context(), logger).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"remote", r.RemoteAddr,
				"duration", time.Since(start))
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logging.FromContext(r.Context(), logger).Error("handler panic", "panic", v)
					httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
