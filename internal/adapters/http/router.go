package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers routes and the shared middleware stack. Centralizing
// them here keeps auth and error behavior consistent across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/google", handler.googleSignIn)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout", handler.logout)
			r.Get("/sessions", handler.listSessions)
		})
	})

	r.Route("/loyalty/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/customers/{customer_id}", handler.getCustomer)
		r.Get("/customers/{customer_id}/transactions", handler.listLoyaltyTransactions)

		r.Group(func(r chi.Router) {
			r.Use(handler.requirePermission("loyalty.record"))
			r.Post("/customers/{customer_id}/transactions", handler.recordLoyaltyTransaction)
		})
	})

	return r
}
