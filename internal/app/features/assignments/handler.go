// internal/app/features/assignments/handler.go
package assignments

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Assignments *assignmentstore.Store
	Resolver    *workflow.Resolver
	Log         *zap.Logger
}

func NewHandler(assignments *assignmentstore.Store, resolver *workflow.Resolver, logger *zap.Logger) *Handler {
	return &Handler{Assignments: assignments, Resolver: resolver, Log: logger}
}

// Me handles GET /assignments/me: the student's current active assignment.
// 404 when the student is not housed.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	studentID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Assignments.ActiveByStudent(ctx, studentID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, a)
}

type remarkBody struct {
	Remark string `json:"remark,omitempty"`
}

// Leave handles POST /assignments/leave: a student vacating their own room
// early. 409 when the student has no active stay.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	studentID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	var body remarkBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	a, err := h.Resolver.ReleaseCurrent(ctx, studentID, htmlsanitize.Sanitize(strings.TrimSpace(body.Remark)))
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, a)
}

// Release handles POST /assignments/{id}/release: staff ending a stay.
// Releasing twice is a 409 with kind invalid_transition.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid assignment id")
		return
	}

	var body remarkBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	a, err := h.Resolver.Release(ctx, id, htmlsanitize.Sanitize(strings.TrimSpace(body.Remark)))
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, a)
}
