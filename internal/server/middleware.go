package server

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-Id"
	formTokenField  = "csrf"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = fmt.Sprintf("%d", time.Now().UnixNano())
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// formGuard admits page form posts only from the page's own origin, or an
// explicitly allowed one, carrying the token rendered into the page.
func (s *Server) formGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := requestOrigin(r)
		if origin == "" || !s.allowedOrigin(origin, r.Host, false) {
			s.logger.Warn("form post rejected",
				zap.String("path", r.URL.Path),
				zap.String("origin", origin),
				zap.String("reason", "origin"))
			http.Error(w, "cross-origin form post", http.StatusForbidden)
			return
		}
		token := r.PostFormValue(formTokenField)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.formToken)) != 1 {
			s.logger.Warn("form post rejected",
				zap.String("path", r.URL.Path),
				zap.String("origin", origin),
				zap.String("reason", "token"))
			http.Error(w, "invalid form token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", r.Header.Get(requestIDHeader)))
	})
}

// statusRecorder keeps the response code and still lets the websocket
// handler take over the connection.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
