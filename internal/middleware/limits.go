package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ClientKey identifies the caller for rate limiting. It relies on chi's
// RealIP middleware having already rewritten RemoteAddr from proxy headers.
func ClientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type window struct {
	start time.Time
	count int
}

// RateLimit is an in-process fixed-window limiter per client. It is used when
// no Redis is configured, so limits only hold for a single replica.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		clients = make(map[string]*window)
	)
	now := time.Now

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestsPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := ClientKey(r)
			t := now()

			mu.Lock()
			win, ok := clients[key]
			if !ok || t.Sub(win.start) >= time.Minute {
				win = &window{start: t}
				clients[key] = win
				// drop stale clients while holding the lock anyway
				for k, other := range clients {
					if t.Sub(other.start) >= time.Minute {
						delete(clients, k)
					}
				}
			}
			win.count++
			count := win.count
			reset := time.Minute - t.Sub(win.start)
			mu.Unlock()

			setRateHeaders(w, requestsPerMinute, requestsPerMinute-count, reset)
			if count > requestsPerMinute {
				write429(w, reset)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateHeaders(w http.ResponseWriter, limit, remaining int, reset time.Duration) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(reset)))
}

func ceilSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	return max(1, s)
}

// write429 writes Too Many Requests in the API's JSON error shape.
func write429(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(retryAfter)))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limited",
		"message": "too many submissions, retry later",
	})
}
