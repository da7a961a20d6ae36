// internal/app/features/requests/handler.go
package requests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Requests *requeststore.Store
	Resolver *workflow.Resolver
	Log      *zap.Logger
}

func NewHandler(requests *requeststore.Store, resolver *workflow.Resolver, logger *zap.Logger) *Handler {
	return &Handler{Requests: requests, Resolver: resolver, Log: logger}
}

type submitBody struct {
	Motive string `json:"motive"`
}

// Submit handles POST /requests. Students only; one pending request per
// student, and a housed student cannot apply.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	studentID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	var body submitBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	req, err := h.Resolver.Submit(ctx, studentID, htmlsanitize.Sanitize(strings.TrimSpace(body.Motive)))
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, req)
}

// ListMine handles GET /requests/mine: the signed-in student's requests,
// newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	studentID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Requests.ListByStudent(ctx, studentID)
	if err != nil {
		h.Log.Error("requests: list by student failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listPayload(list))
}

// ListPending handles GET /requests/pending: the staff work queue, oldest
// first so the longest-waiting student surfaces on top.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Requests.ListPending(ctx)
	if err != nil {
		h.Log.Error("requests: list pending failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listPayload(list))
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// Reject handles POST /requests/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid request id")
		return
	}

	var body rejectBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	req, err := h.Resolver.Reject(ctx, id, htmlsanitize.Sanitize(strings.TrimSpace(body.Reason)))
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, req)
}

type assignBody struct {
	RoomID    string `json:"room_id"`
	StartDate string `json:"start_date,omitempty"` // YYYY-MM-DD, defaults to today
	EndDate   string `json:"end_date,omitempty"`   // YYYY-MM-DD, open-ended when empty
	Remark    string `json:"remark,omitempty"`
}

// Assign handles POST /requests/{id}/assign: the accept path. Validation
// failures are 422; losing a race for the room is a 409.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	requestID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid request id")
		return
	}

	var body assignBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	roomID, err := primitive.ObjectIDFromHex(body.RoomID)
	if err != nil {
		httperr.BadRequest(w, "invalid room id")
		return
	}

	var start time.Time
	if body.StartDate != "" {
		start, err = time.Parse("2006-01-02", body.StartDate)
		if err != nil {
			httperr.Validation(w, "start_date must be YYYY-MM-DD")
			return
		}
	}
	var end *time.Time
	if body.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", body.EndDate)
		if err != nil {
			httperr.Validation(w, "end_date must be YYYY-MM-DD")
			return
		}
		end = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	assignment, err := h.Resolver.Assign(ctx, requestID, roomID, start, end,
		htmlsanitize.Sanitize(strings.TrimSpace(body.Remark)))
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, assignment)
}

// listPayload keeps empty lists serializing as [] instead of null.
func listPayload(list []models.Request) []models.Request {
	if list == nil {
		return []models.Request{}
	}
	return list
}
