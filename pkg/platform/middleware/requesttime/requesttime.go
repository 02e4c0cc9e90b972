// Package requesttime pins one "now" per HTTP request so the access log,
// latency metrics and anything downstream agree on when the request began.
package requesttime

import (
	"net/http"
	"time"

	"guardian/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
// Requests that already carry a time (tests, replays) keep it.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable clock.
func MiddlewareWithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Value(requestcontext.ContextKeyRequestTime).(time.Time); !ok {
				ctx = requestcontext.WithTime(ctx, clock())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
