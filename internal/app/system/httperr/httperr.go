// internal/app/system/httperr/httperr.go
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	complaintstore "github.com/dalemusser/dormdesk/internal/app/store/complaints"
	notificationstore "github.com/dalemusser/dormdesk/internal/app/store/notifications"
	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
)

// Error kinds returned in JSON bodies. Clients branch on these, not on the
// message text.
const (
	KindNotFound          = "not_found"
	KindInvalidTransition = "invalid_transition"
	KindResourceConflict  = "resource_conflict"
	KindDateRangeInvalid  = "date_range_invalid"
	KindValidation        = "validation_failed"
	KindSessionExpired    = "session_expired"
	KindForbidden         = "forbidden"
	KindInternal          = "internal"
)

type payload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write maps a domain error to its HTTP status and kind and writes the JSON
// error body. Unrecognized errors become an opaque 500 so internal detail
// never leaks to the client.
func Write(w http.ResponseWriter, err error) {
	status, kind, msg := classify(err)
	JSON(w, status, payload{Error: msg, Kind: kind})
}

// Validation writes a 422 with a caller-supplied message.
func Validation(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusUnprocessableEntity, payload{Error: msg, Kind: KindValidation})
}

// BadRequest writes a 400 with a caller-supplied message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, payload{Error: msg, Kind: KindValidation})
}

// NotFound writes a plain 404.
func NotFound(w http.ResponseWriter) {
	JSON(w, http.StatusNotFound, payload{Error: "not found", Kind: KindNotFound})
}

// SessionExpired writes the 401 the frontend treats as "redirect to login".
func SessionExpired(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, payload{Error: "session expired", Kind: KindSessionExpired})
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter) {
	JSON(w, http.StatusForbidden, payload{Error: "forbidden", Kind: KindForbidden})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, requeststore.ErrNotFound),
		errors.Is(err, roomstore.ErrNotFound),
		errors.Is(err, assignmentstore.ErrNotFound),
		errors.Is(err, notificationstore.ErrNotFound),
		errors.Is(err, complaintstore.ErrNotFound),
		errors.Is(err, userstore.ErrNotFound):
		return http.StatusNotFound, KindNotFound, "not found"

	case errors.Is(err, requeststore.ErrInvalidTransition):
		return http.StatusConflict, KindInvalidTransition, "request is not pending"
	case errors.Is(err, assignmentstore.ErrAlreadyReleased):
		return http.StatusConflict, KindInvalidTransition, "assignment already released"
	case errors.Is(err, complaintstore.ErrBackwardTransition):
		return http.StatusConflict, KindInvalidTransition, "complaint status cannot move backward"

	case errors.Is(err, roomstore.ErrUnavailable):
		return http.StatusConflict, KindResourceConflict, "room is not available"
	case errors.Is(err, roomstore.ErrDuplicateNumber):
		return http.StatusConflict, KindResourceConflict, "room number already exists"
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return http.StatusConflict, KindResourceConflict, "email already registered"
	case errors.Is(err, workflow.ErrAlreadyHoused):
		return http.StatusConflict, KindResourceConflict, "student already occupies a room"
	case errors.Is(err, workflow.ErrDuplicatePending):
		return http.StatusConflict, KindResourceConflict, "student already has a pending request"
	case errors.Is(err, workflow.ErrNoActiveStay):
		return http.StatusConflict, KindResourceConflict, "no active assignment"

	case errors.Is(err, workflow.ErrDateRange):
		return http.StatusUnprocessableEntity, KindDateRangeInvalid, "start date must not be after end date"

	default:
		return http.StatusInternalServerError, KindInternal, "internal error"
	}
}
