// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the dashboard endpoints (staff and admin).
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireRole(models.RoleStaff, models.RoleAdmin))
	r.Get("/stats", h.Stats)
}
