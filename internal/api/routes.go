package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes builds the management API router. Public endpoints (signup,
// verification, health) sit outside /api so a future auth middleware can
// wrap the management surface without touching them.
func SetupRoutes(h *Handlers, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	// Public, unauthenticated signup flow.
	r.Route("/public", func(r chi.Router) {
		r.Post("/lists/{shortcode}/subscribe", h.PublicSubscribe)
		r.Get("/verify", h.PublicVerify)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.GetLists)
			r.Post("/", h.CreateList)
			r.Route("/{listID}", func(r chi.Router) {
				r.Get("/", h.GetList)
				r.Put("/", h.UpdateList)
				r.Delete("/", h.DeleteList)
				r.Get("/stats", h.GetListStats)
				r.Get("/subscribers", h.GetSubscribers)
				r.Post("/subscribers", h.CreateSubscriber)
				r.Delete("/subscribers/{subscriberID}", h.DeleteSubscriber)
			})
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.GetCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Put("/", h.UpdateCampaign)
				r.Delete("/", h.DeleteCampaign)
				r.Get("/preview", h.PreviewCampaign)
				r.Get("/stats", h.GetCampaignStats)
				r.Post("/test", h.SendTestCampaign)
				r.Post("/rss", h.SeedCampaignFromFeed)
				r.Post("/schedule", h.ScheduleCampaign)
				r.Post("/cancel", h.CancelCampaign)
				r.Post("/send", h.SendCampaign)
			})
		})

		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.GetImports)
			r.Post("/", h.CreateImport)
			r.Get("/{importID}", h.GetImport)
		})
	})

	return r
}
