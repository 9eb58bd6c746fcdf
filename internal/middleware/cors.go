package middleware

import (
	"net/http"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/rs/cors"
)

// CORS applies cross-origin rules from cfg. A disabled configuration returns
// a pass-through middleware.
func CORS(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
	return c.Handler
}
