// Package server implements the read-only HTTP inspection API served by
// cocokit serve.
package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// withRequestID tags each request with an id. A well-formed X-Request-ID from
// the client is kept so calls can be traced across tools.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// accessLog writes one line per request and turns a handler panic into a
// 500 response.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				level := slog.LevelInfo
				if p := recover(); p != nil {
					logger.Error("handler panic", "panic", p, "request_id", requestIDFrom(r.Context()))
					if rec.status == 0 {
						writeError(rec, http.StatusInternalServerError, "internal_error", "internal server error")
					}
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "request",
					"method", r.Method,
					"route", r.Pattern,
					"path", r.URL.Path,
					"status", rec.code(),
					"bytes", rec.bytes,
					"duration", time.Since(start),
					"request_id", requestIDFrom(r.Context()),
				)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// tokenAuth requires "Authorization: Bearer <token>" on every request.
func tokenAuth(token string) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), expected) != 1 {
				writeError(w, http.StatusUnauthorized, "auth_failed", "missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hostLimiter allows limit requests per client host in each fixed one-minute
// window. Counts are dropped wholesale when a window ends.
type hostLimiter struct {
	limit int
	now   func() time.Time

	mu     sync.Mutex
	start  time.Time
	counts map[string]int
}

func newHostLimiter(limit int) *hostLimiter {
	return &hostLimiter{limit: limit, now: time.Now, counts: make(map[string]int)}
}

// allow counts one request from host and reports whether it is within the
// limit, plus the time left in the current window.
func (l *hostLimiter) allow(host string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.start) >= time.Minute {
		l.start = now
		clear(l.counts)
	}
	l.counts[host]++
	return l.counts[host] <= l.limit, l.start.Add(time.Minute).Sub(now)
}

func (l *hostLimiter) middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ok, left := l.allow(host)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(left.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
