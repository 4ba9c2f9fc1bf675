package middleware

import (
	"net/http"

	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/ratelimit"
)

const submitScope = "submit"

// SubmissionLimit caps report submissions per client per minute. With a nil
// manager it falls back to the in-process RateLimit. Redis failures let the
// request through.
func SubmissionLimit(m *ratelimit.Manager, perMinute int) func(http.Handler) http.Handler {
	if m == nil {
		return RateLimit(perMinute)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := m.Allow(r.Context(), submitScope, ClientKey(r), perMinute)
			if err != nil {
				logger.WithContext(r.Context()).Warn("Rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if d.Limit > 0 {
				setRateHeaders(w, d.Limit, d.Remaining, d.Reset)
			}
			if !d.Allowed {
				write429(w, d.Reset)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
