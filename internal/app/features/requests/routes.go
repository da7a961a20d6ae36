// internal/app/features/requests/routes.go
package requests

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the request endpoints. Submission and "mine" are
// student-facing; the pending queue and decisions are staff/admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStudent))
		r.Post("/", h.Submit)
		r.Get("/mine", h.ListMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff, models.RoleAdmin))
		r.Get("/pending", h.ListPending)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/assign", h.Assign)
	})
}
