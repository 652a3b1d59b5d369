package middleware

import (
	"net/http"
	"strings"

	"smartwallet-gateway/config"

	"github.com/rs/cors"
)

// CORSOptions builds the cross-origin policy wrapped around the router.
func CORSOptions(cfg config.CORSConfig) cors.Options {
	return cors.Options{
		AllowOriginFunc: AllowedOrigin(cfg.AllowedOrigins),
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", HeaderRequestID},
		ExposedHeaders:   []string{HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:           cfg.MaxAge,
		AllowCredentials: false,
	}
}

// AllowedOrigin matches origins ignoring the scheme. An empty list or "*"
// allows every origin.
func AllowedOrigin(allowedOrigins []string) func(origin string) bool {
	trimScheme := func(origin string) string {
		return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	}
	return func(origin string) bool {
		if len(allowedOrigins) == 0 || allowedOrigins[0] == "*" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == origin || trimScheme(allowed) == trimScheme(origin) {
				return true
			}
		}
		return false
	}
}
