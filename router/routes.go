package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/signpay/handler"
	v1 "github.com/mstgnz/signpay/router/v1"

	// Import for side-effect registration
	_ "github.com/mstgnz/signpay/provider/resurs"
)

// Routes registers the health check and the versioned API
func Routes(r chi.Router, health *handler.HealthHandler, api v1.Handlers) {
	r.Get("/health", health.CheckHealth)

	r.Route("/v1", func(r chi.Router) {
		v1.Routes(r, api)
	})
}
