// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the notification endpoints. All of them operate on the
// signed-in user's own notifications; there is no cross-user access.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.ListMine)
	r.Get("/me/stats", h.Stats)
	r.Get("/me/stream", h.Stream)
	r.Put("/{id}/read", h.MarkRead)
	r.Put("/read-all", h.MarkAllRead)
}
