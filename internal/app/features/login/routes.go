// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the login endpoint on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}
