// internal/app/features/complaints/handler.go
package complaints

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	complaintstore "github.com/dalemusser/dormdesk/internal/app/store/complaints"
	"github.com/dalemusser/dormdesk/internal/app/notify"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const recentLimit = 200

type Handler struct {
	Complaints *complaintstore.Store
	Fanout     *notify.Fanout
	Log        *zap.Logger
}

func NewHandler(complaints *complaintstore.Store, fanout *notify.Fanout, logger *zap.Logger) *Handler {
	return &Handler{Complaints: complaints, Fanout: fanout, Log: logger}
}

type createBody struct {
	Message string `json:"message"`
}

// Create handles POST /complaints.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	authorID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	var body createBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxComplaintBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}
	message := htmlsanitize.Sanitize(strings.TrimSpace(body.Message))
	if message == "" {
		httperr.Validation(w, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Complaints.Create(ctx, authorID, message)
	if err != nil {
		h.Log.Error("complaints: create failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}

	if err := h.Fanout.NotifyRole(ctx, models.RoleStaff, models.NotifyInfo,
		"New complaint", "A new complaint has been submitted."); err != nil {
		h.Log.Warn("complaints: staff fanout failed", zap.Error(err))
	}
	httperr.JSON(w, http.StatusCreated, c)
}

// ListMine handles GET /complaints/mine.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	authorID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Complaints.ListByAuthor(ctx, authorID)
	if err != nil {
		h.Log.Error("complaints: list mine failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Complaint{}
	}
	httperr.JSON(w, http.StatusOK, list)
}

// ListRecent handles GET /complaints: the staff review queue, newest first.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Complaints.ListRecent(ctx, recentLimit)
	if err != nil {
		h.Log.Error("complaints: list recent failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Complaint{}
	}
	httperr.JSON(w, http.StatusOK, list)
}

type statusBody struct {
	Status string `json:"status"`
}

// SetStatus handles POST /complaints/{id}/status. Transitions are monotonic;
// moving backward (or repeating a status) is a 409. The author is notified of
// every successful move.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid complaint id")
		return
	}

	var body statusBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}
	if _, ok := models.ComplaintRank[body.Status]; !ok {
		httperr.Validation(w, `status must be "in_progress" or "resolved"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Complaints.SetStatus(ctx, id, body.Status)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	if _, err := h.Fanout.Notify(ctx, c.AuthorID, models.NotifyInfo,
		"Complaint updated", "Your complaint is now "+strings.ReplaceAll(c.Status, "_", " ")+"."); err != nil {
		h.Log.Warn("complaints: author notification failed", zap.Error(err))
	}
	httperr.JSON(w, http.StatusOK, c)
}
