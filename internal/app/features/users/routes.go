// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the user management endpoints (admin only).
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}", h.Update)
	r.Post("/{id}/password", h.SetPassword)
	r.Delete("/{id}", h.Delete)
}
