package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// NewCORS creates a CORS middleware allowing the given origins for the
// read-only query API.
func NewCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
