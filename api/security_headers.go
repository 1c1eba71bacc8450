package api

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// SecurityHeaders sets the response headers every route shares. The API
// only serves JSON and the docs UI, so framing and sniffing are denied.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		if requestIsSecure(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows the UI shell origins listed in origins (comma separated). An
// empty list admits only local development origins.
func CORS(origins string) func(http.Handler) http.Handler {
	allowed := []string{"http://localhost:3000", "http://localhost:8081", "http://127.0.0.1:8081"}
	if origins != "" {
		allowed = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowed = append(allowed, o)
			}
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	})
	return c.Handler
}
