package middleware

import (
	"net/http"
	"net/url"

	"github.com/rs/cors"

	"rental-backend/internal/config"
)

// NewCORS allows the configured dashboard origins. In development any
// localhost port is accepted as well, so the frontend dev server can move.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if cfg.IsDevelopment() {
		allowed := make(map[string]bool, len(opts.AllowedOrigins))
		for _, o := range opts.AllowedOrigins {
			allowed[o] = true
		}
		opts.AllowOriginFunc = func(origin string) bool {
			return allowed[origin] || isLocalOrigin(origin)
		}
	}

	return cors.New(opts).Handler
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
