package main

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/tushar1003/deckgen/perfcache"
	"github.com/tushar1003/deckgen/pkg/ratelimit"
)

// newHTTPHandler builds the service mux: cache statistics and a health
// check. Prometheus metrics are served by the dedicated metrics server.
func newHTTPHandler(cache *perfcache.Cache[json.RawMessage], limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/stats", rateLimited(limiter, ratelimit.GroupAPI,
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(cache.Stats()); err != nil {
				slog.Error("failed to encode stats", "error", err)
			}
		}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

// rateLimited wraps a handler with per-client token-bucket limiting.
func rateLimited(limiter *ratelimit.Limiter, group string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.Allow(group, r.Header.Get("X-User-ID"), ip) {
			retryAfter := limiter.RetryAfter(group)
			slog.Warn("rate limit exceeded",
				"group", group, "ip", ip, "retry_after", retryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	})
}

// clientIP extracts the client address, honoring the first hop of
// X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
