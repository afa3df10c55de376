package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware placed in front of an App's
// HTTP handler.
type CORSConfig struct {
	// AllowedOrigins lists origins that may call the surface. "*" allows
	// every origin. Default: ["*"]
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST and OPTIONS, the methods the
	// HTTP transport answers.
	AllowedMethods []string

	// AllowedHeaders defaults to Content-Type and Authorization.
	AllowedHeaders []string

	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header.
	MaxAge int
}

// DefaultCORSConfig returns a permissive configuration for development.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

// CORS returns an HTTP middleware that answers preflight requests and sets
// the CORS response headers. Install it with App.WithMiddleware.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultCORSConfig()
	}
	def := DefaultCORSConfig()
	origins := orDefault(cfg.AllowedOrigins, def.AllowedOrigins)
	methods := strings.Join(orDefault(cfg.AllowedMethods, def.AllowedMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, def.AllowedHeaders), ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	wildcard := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			if wildcard || (origin != "" && slices.Contains(origins, origin)) {
				switch {
				case origin != "" && (!wildcard || cfg.AllowCredentials):
					// "*" may not be combined with credentials.
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				default:
					h.Set("Access-Control-Allow-Origin", "*")
				}
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
