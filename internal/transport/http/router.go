package http

import (
	"net/http"

	"github.com/go-api-magiclink/internal/application/auth"
	"github.com/go-api-magiclink/internal/config"
	"github.com/go-api-magiclink/internal/transport/http/handler"
	appmiddleware "github.com/go-api-magiclink/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps holds what the router needs from the application and infrastructure layers.
type Deps struct {
	Auth  auth.Service
	Store handler.Pinger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler(deps.Store)
	authH := handler.NewAuthHandler(deps.Auth)

	r.Get("/health-check/{action}", healthH.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authH.Login)
		r.Get("/verify/{code}", authH.Verify)
		r.With(appmiddleware.Auth(deps.Auth)).Get("/session", authH.Session)
	})

	return r
}
