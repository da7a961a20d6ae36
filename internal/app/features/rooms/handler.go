// internal/app/features/rooms/handler.go
package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Rooms *roomstore.Store
	Log   *zap.Logger
}

func NewHandler(rooms *roomstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Rooms: rooms, Log: logger}
}

// List handles GET /rooms: every room, for the staff overview.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Rooms.ListAll(ctx)
	if err != nil {
		h.Log.Error("rooms: list failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Room{}
	}
	httperr.JSON(w, http.StatusOK, list)
}

// ListAvailable handles GET /rooms/available?type=single. Staff use this to
// pick a room while accepting a request.
func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	roomType := strings.TrimSpace(r.URL.Query().Get("type"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Rooms.ListAvailable(ctx, roomType)
	if err != nil {
		h.Log.Error("rooms: list available failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Room{}
	}
	httperr.JSON(w, http.StatusOK, list)
}

type roomBody struct {
	Number   string `json:"number"`
	Building string `json:"building,omitempty"`
	RoomType string `json:"room_type"`
	Capacity int    `json:"capacity,omitempty"`
}

// Create handles POST /rooms. Duplicate numbers are a 409.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body roomBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}
	body.Number = strings.TrimSpace(body.Number)
	if body.Number == "" {
		httperr.Validation(w, "room number is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	room, err := h.Rooms.Create(ctx, models.Room{
		Number:   body.Number,
		Building: strings.TrimSpace(body.Building),
		RoomType: body.RoomType,
		Capacity: body.Capacity,
	})
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, room)
}

// Update handles POST /rooms/{id}: number, building, type, capacity.
// Occupancy state is never writable here; only the assignment workflow flips
// a room between available and occupied.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid room id")
		return
	}
	var body roomBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Rooms.UpdateInfo(ctx, id, strings.TrimSpace(body.Number),
		strings.TrimSpace(body.Building), body.RoomType, body.Capacity); err != nil {
		httperr.Write(w, err)
		return
	}

	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, room)
}

// Delete handles DELETE /rooms/{id}. An occupied room cannot be removed; the
// active stay has to be released first.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid room id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	if room.State == models.RoomOccupied {
		httperr.Write(w, roomstore.ErrUnavailable)
		return
	}

	deleted, err := h.Rooms.Delete(ctx, id)
	if err != nil {
		h.Log.Error("rooms: delete failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if deleted == 0 {
		httperr.NotFound(w)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type maintenanceBody struct {
	Down bool `json:"down"`
}

// SetMaintenance handles POST /rooms/{id}/maintenance. Taking an occupied
// room down is a 409; the stay has to end first.
func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid room id")
		return
	}
	var body maintenanceBody
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Rooms.SetMaintenance(ctx, id, body.Down); err != nil {
		httperr.Write(w, err)
		return
	}
	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, room)
}
