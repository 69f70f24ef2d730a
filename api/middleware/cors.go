package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS lets the admin dashboard and agent storefront front-ends call the API.
// A "*" origin turns credentials off, since browsers refuse that pairing.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, ForwarderSecretHeader, requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
