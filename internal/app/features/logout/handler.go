// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// Logout handles POST /logout. Clearing an absent session is still a 200; the
// endpoint is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r); err != nil {
		h.Log.Error("logout: session clear failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
