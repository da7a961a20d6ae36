// internal/app/features/complaints/routes.go
package complaints

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the complaint endpoints. Any signed-in user may file and
// read their own; the review queue and status changes are staff/admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff, models.RoleAdmin))
		r.Get("/", h.ListRecent)
		r.Post("/{id}/status", h.SetStatus)
	})
}
