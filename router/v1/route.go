package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/signpay/handler"
	"github.com/mstgnz/signpay/infra/auth"
	"github.com/mstgnz/signpay/infra/middle"
)

// Handlers are the handlers and middleware behind the v1 routes
type Handlers struct {
	Checkout *handler.CheckoutHandler
	Events   *handler.EventsHandler

	// Auth issues back office tokens, nil leaves the API key as the only credential
	Auth   *handler.AuthHandler
	Tokens *auth.JWTService

	// BackOfficeIPs limits back office routes to these addresses or ranges, empty allows all
	BackOfficeIPs []string

	// Session attaches the checkout session id to customer requests
	Session func(http.Handler) http.Handler

	// AddressLimiter throttles address lookups per client IP, nil disables it
	AddressLimiter *middle.RateLimiter
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	r.Route("/checkout", func(r chi.Router) {
		// Customer routes, including the provider callbacks the customer is
		// redirected to after signing
		r.Group(func(r chi.Router) {
			if h.Session != nil {
				r.Use(h.Session)
			}

			r.Post("/identity", h.Checkout.SubmitIdentity)
			r.Get("/rules", h.Checkout.Rules)
			r.Post("/orders/{orderID}/authorize", h.Checkout.Authorize)
			r.Get("/sign", h.Checkout.Sign)
			r.Post("/signed", h.Checkout.Signed)
			r.Get("/success", h.Checkout.Success)
			r.Get("/failure", h.Checkout.Failure)

			r.Group(func(r chi.Router) {
				if h.AddressLimiter != nil {
					r.Use(middle.RateLimitMiddleware(h.AddressLimiter, middle.ByClientIP))
				}
				r.Get("/address", h.Checkout.LookupAddress)
			})
		})

		// Back office routes
		r.Group(func(r chi.Router) {
			r.Use(middle.IPWhitelistMiddleware(h.BackOfficeIPs))
			r.Use(middle.AuthMiddleware(h.Tokens))
			r.Use(middle.RequireScope(auth.ScopeEvents))
			r.Get("/events/{quoteID}", h.Events.QuoteEvents)
		})
	})

	if h.Auth != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middle.IPWhitelistMiddleware(h.BackOfficeIPs))
			// minting is reserved to API key holders
			r.With(middle.AuthMiddleware(nil)).Post("/token", h.Auth.IssueToken)
			r.Post("/refresh", h.Auth.RefreshToken)
		})
	}
}
