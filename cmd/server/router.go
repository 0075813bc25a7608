package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/fiszki-api/internal/api"
	apiMiddleware "github.com/phrazzld/fiszki-api/internal/api/middleware"
	"github.com/phrazzld/fiszki-api/internal/config"
	"github.com/phrazzld/fiszki-api/internal/generation"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/service/auth"
	"github.com/phrazzld/fiszki-api/internal/service/review"
	"github.com/rs/cors"
)

// routerDeps are the services the HTTP layer needs.
type routerDeps struct {
	config      *config.Config
	logger      *slog.Logger
	jwtService  auth.JWTService
	auth        auth.Service
	flashcards  service.FlashcardService
	generations generation.Service
	reviews     review.Service
}

func (app *application) setupRouter() (http.Handler, error) {
	return newRouter(routerDeps{
		config:      app.config,
		logger:      app.logger,
		jwtService:  app.jwtService,
		auth:        app.authService,
		flashcards:  app.flashcardService,
		generations: app.generationService,
		reviews:     app.reviewService,
	})
}

// newRouter builds the chi router with middleware and all routes.
func newRouter(d routerDeps) (http.Handler, error) {
	limiter, err := apiMiddleware.NewUserRateLimiter(
		d.config.Generation.RateLimitPerMinute,
		d.config.Generation.RateLimitBurst,
		apiMiddleware.DefaultLimiterCacheSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation rate limiter: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(d.logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{apiMiddleware.TraceIDHeader, "Retry-After"},
		AllowCredentials: true,
	}).Handler)

	authHandler := api.NewAuthHandler(d.auth, d.logger)
	flashcardHandler := api.NewFlashcardHandler(d.flashcards, d.logger)
	generationHandler := api.NewGenerationHandler(d.generations, d.reviews, d.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(d.jwtService)

	r.Get("/health", api.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", authHandler.Register)
		r.Post("/users/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/users/profile", authHandler.Profile)

			r.Get("/flashcards", flashcardHandler.List)
			r.Post("/flashcards", flashcardHandler.Create)
			r.Get("/flashcards/stats", flashcardHandler.Stats)
			r.Get("/flashcards/{id}", flashcardHandler.Get)
			r.Put("/flashcards/{id}", flashcardHandler.Update)
			r.Delete("/flashcards/{id}", flashcardHandler.Delete)

			r.With(limiter.Limit).Post("/generations", generationHandler.Generate)
			r.Get("/generations/errors", generationHandler.ListErrors)
			r.Get("/generations/{generationId}", generationHandler.Get)
			r.Patch("/generations/{generationId}/flashcards/{flashcardId}", generationHandler.Review)
		})
	})

	return r, nil
}
