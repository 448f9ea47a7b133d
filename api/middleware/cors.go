package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser clients from origins, which may use "*" or "https://*.example.com"
// patterns. Credentials are only allowed for explicit origin lists because auth travels in
// headers, never cookies, for the wildcard case.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	wildcard := false
	for _, origin := range origins {
		if origin == "*" {
			wildcard = true
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			"Idempotency-Key", "X-Event-Pass", "X-Guest-Id", "X-Guest-Token", "X-Request-Id",
		},
		ExposedHeaders:   []string{"X-Request-Id", "X-Guest-Token", "Retry-After", "Content-Range"},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
