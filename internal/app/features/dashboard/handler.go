// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	complaintstore "github.com/dalemusser/dormdesk/internal/app/store/complaints"
	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Requests    *requeststore.Store
	Rooms       *roomstore.Store
	Assignments *assignmentstore.Store
	Complaints  *complaintstore.Store
	Users       *userstore.Store
	Log         *zap.Logger
}

func NewHandler(requests *requeststore.Store, rooms *roomstore.Store, assignments *assignmentstore.Store, complaints *complaintstore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Requests:    requests,
		Rooms:       rooms,
		Assignments: assignments,
		Complaints:  complaints,
		Users:       users,
		Log:         logger,
	}
}

type stats struct {
	PendingRequests   int64 `json:"pending_requests"`
	ActiveAssignments int64 `json:"active_assignments"`
	AvailableRooms    int64 `json:"available_rooms"`
	OccupiedRooms     int64 `json:"occupied_rooms"`
	MaintenanceRooms  int64 `json:"maintenance_rooms"`
	OpenComplaints    int64 `json:"open_complaints"`
	Students          int64 `json:"students,omitempty"`
	Staff             int64 `json:"staff,omitempty"`
}

// Stats handles GET /dashboard/stats: the operational counters behind the
// staff and admin dashboard tiles. Admins additionally see user counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var out stats
	var err error

	if out.PendingRequests, err = h.Requests.CountByStatus(ctx, models.RequestPending); err != nil {
		h.fail(w, "pending requests", err)
		return
	}
	if out.ActiveAssignments, err = h.Assignments.CountActive(ctx); err != nil {
		h.fail(w, "active assignments", err)
		return
	}
	if out.AvailableRooms, err = h.Rooms.CountByState(ctx, models.RoomAvailable); err != nil {
		h.fail(w, "available rooms", err)
		return
	}
	if out.OccupiedRooms, err = h.Rooms.CountByState(ctx, models.RoomOccupied); err != nil {
		h.fail(w, "occupied rooms", err)
		return
	}
	if out.MaintenanceRooms, err = h.Rooms.CountByState(ctx, models.RoomMaintenance); err != nil {
		h.fail(w, "maintenance rooms", err)
		return
	}

	submitted, err := h.Complaints.CountByStatus(ctx, models.ComplaintSubmitted)
	if err != nil {
		h.fail(w, "submitted complaints", err)
		return
	}
	inProgress, err := h.Complaints.CountByStatus(ctx, models.ComplaintInProgress)
	if err != nil {
		h.fail(w, "in-progress complaints", err)
		return
	}
	out.OpenComplaints = submitted + inProgress

	if authz.IsAdmin(r) {
		if out.Students, err = h.Users.CountByRole(ctx, models.RoleStudent); err != nil {
			h.fail(w, "student count", err)
			return
		}
		if out.Staff, err = h.Users.CountByRole(ctx, models.RoleStaff); err != nil {
			h.fail(w, "staff count", err)
			return
		}
	}

	httperr.JSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.Log.Error("dashboard: stats query failed", zap.String("counter", what), zap.Error(err))
	httperr.Write(w, err)
}
