package inventory

import "github.com/go-chi/chi/v5"

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Route("/{variantID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleArchive)
		r.Post("/adjust", h.handleAdjust)
		r.Post("/import", h.handleImport)
		r.Post("/reserve", h.handleReserve)
		r.Post("/release", h.handleRelease)
		r.Post("/confirm", h.handleConfirm)
		r.Get("/transactions", h.handleHistory)
		r.Get("/reconcile", h.handleReconcile)
	})
}
