package middleware

import (
	"net/http"
	"strings"
)

// allowedMethods matches the API surface; the engine exposes no PUT or
// PATCH routes.
const allowedMethods = "GET, POST, DELETE, OPTIONS"

const allowedHeaders = "Content-Type, Authorization"

// CORS returns middleware that sets CORS headers for browser clients. An
// empty origins list allows every origin; "*" as a list entry does the
// same. Preflight requests are answered directly with 204.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := allowed[strings.ToLower(origin)]
				if allowAll || ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
					w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
