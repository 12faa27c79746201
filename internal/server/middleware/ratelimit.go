// Package middleware holds HTTP middleware for the status API.
package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit bounds request throughput for the whole process. The status
// API fronts a single SQLite handle; a burst of polling must not starve
// the pipeline's own store access.
func RateLimit(perSecond float64) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
