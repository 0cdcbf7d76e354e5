package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/vector-cv/app"
	"github.com/upb/vector-cv/handlers"
	"github.com/upb/vector-cv/middleware"
	"github.com/upb/vector-cv/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(pinger(deps), handlers.StatusInfo{
		Environment: cfg.Environment,
		Store:       cfg.Store.Driver,
		Embedding:   deps.Embeddings.BackendName(),
		Generation:  cfg.Generation.Provider,
		Providers:   deps.ProviderRegistry.ListProviders(),
	}, deps.Logger)
	blocks := handlers.NewBlockHandler(deps.Content, deps.Selection, deps.Logger)
	profiles := handlers.NewProfileHandler(deps.Content, deps.Logger)
	guidelines := handlers.NewGuidelineHandler(deps.Content, deps.Logger)
	applications := handlers.NewApplicationHandler(deps.Applications, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", health.HandleStatus)

		r.Route("/personal-info", func(r chi.Router) {
			r.Get("/", profiles.HandleGetProfile)
			r.Post("/", profiles.HandleUpsertProfile)
		})

		r.Route("/experience-blocks", func(r chi.Router) {
			r.Get("/", blocks.HandleListBlocks)
			r.Post("/", blocks.HandleCreateBlock)
			r.Post("/select", blocks.HandleSelect)
			r.Get("/{id}", blocks.HandleGetBlock)
			r.Patch("/{id}", blocks.HandleUpdateBlock)
			r.Delete("/{id}", blocks.HandleDeleteBlock)
		})

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", applications.HandleListApplications)
			r.Post("/", applications.HandleGenerate)
			r.Get("/{id}", applications.HandleGetApplication)
			r.Patch("/{id}", applications.HandleUpdateApplication)
		})

		r.Get("/usage-stats", applications.HandleUsage)

		r.Route("/style-guidelines", func(r chi.Router) {
			r.Get("/", guidelines.HandleListGuidelines)
			r.Post("/", guidelines.HandleCreateGuideline)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// pinger avoids handing a typed nil to the readiness check
func pinger(deps *app.Dependencies) handlers.Pinger {
	if deps.DB == nil {
		return nil
	}
	return deps.DB
}
