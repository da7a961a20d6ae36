// internal/app/features/rooms/routes.go
package rooms

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the room endpoints. Reads are staff/admin; structural
// changes are admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff, models.RoleAdmin))
		r.Get("/", h.List)
		r.Get("/available", h.ListAvailable)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))
		r.Post("/", h.Create)
		r.Post("/{id}", h.Update)
		r.Post("/{id}/maintenance", h.SetMaintenance)
		r.Delete("/{id}", h.Delete)
	})
}
