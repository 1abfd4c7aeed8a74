package middleware

import (
	"net/http"
	"strings"

	"github.com/teilomillet/parley/config"
)

// CORS writes the configured cross-origin headers on every response and
// answers preflight OPTIONS requests with 204.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origin := cfg.AllowedOrigin
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	methods := strings.Join(cfg.AllowedMethods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Allow-Methods", methods)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
