// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the assignment endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStudent))
		r.Get("/me", h.Me)
		r.Post("/leave", h.Leave)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff, models.RoleAdmin))
		r.Post("/{id}/release", h.Release)
	})
}
