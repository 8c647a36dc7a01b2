package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/stream", h.StreamChat)
			r.Post("/resume", h.ResumeChat)
			r.Post("/cancel", h.CancelChat)
			r.Get("/status/{query_id}", h.ChatStatus)
			r.Get("/history/{thread_id}", h.ThreadHistory)
		})
		r.Get("/health", h.Health)
	})

	r.Get("/ws", h.Hub.HandleWS)
}
