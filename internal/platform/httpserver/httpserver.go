package httpserver

import (
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Option adjusts the server built by New.
type Option func(*http.Server)

// WithWriteTimeout sets the response write deadline. Values <= 0 are ignored.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// WithMinWriteTimeout raises the write deadline to at least d, so handlers
// that block on downstream work for up to d are not cut off mid-response.
func WithMinWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > s.WriteTimeout {
			s.WriteTimeout = d
		}
	}
}

// New builds the guardian HTTP server.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(srv)
		}
	}
	return srv
}
