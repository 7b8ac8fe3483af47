package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"starbase-server/internal/shared/config"
)

type CORSMiddleware struct {
	*cors.Cors
}

func NewCORS(cfg config.ServerConfig, logger *slog.Logger) *CORSMiddleware {
	logger = logger.With("component", "cors", "operation", "setup")
	logger.Debug("Setting up CORS middleware")

	allowedOrigins := []string{cfg.FrontendURL}

	corsConfig := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	logger.Info("CORS middleware configured", "allowed_origins", allowedOrigins)

	return &CORSMiddleware{corsConfig}
}

func (c *CORSMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Cors.Handler(h)
}
