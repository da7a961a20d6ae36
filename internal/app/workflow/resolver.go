// internal/app/workflow/resolver.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	"github.com/dalemusser/dormdesk/internal/app/system/keymu"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service-level precondition failures. Store-level failures (not found,
// invalid transition, room unavailable, already released) pass through from
// the store packages wrapped, so errors.Is keeps working at the HTTP edge.
var (
	ErrDateRange        = errors.New("start date must not be after end date")
	ErrAlreadyHoused    = errors.New("student already occupies a room")
	ErrDuplicatePending = errors.New("student already has a pending request")
	ErrNoActiveStay     = errors.New("student has no active assignment")
)

// RequestStore is the slice of the request store the resolver drives.
type RequestStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Request, error)
	Create(ctx context.Context, studentID primitive.ObjectID, motive string) (models.Request, error)
	Reject(ctx context.Context, id primitive.ObjectID, reason string) (models.Request, error)
	MarkAssigned(ctx context.Context, id, assignmentID primitive.ObjectID) (models.Request, error)
	Reopen(ctx context.Context, id primitive.ObjectID) error
	HasPending(ctx context.Context, studentID primitive.ObjectID) (bool, error)
}

// RoomStore is the slice of the room store the resolver drives. Occupy and
// Free are the only occupancy writes in the whole application; nothing else
// may flip a room between available and occupied.
type RoomStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error)
	Occupy(ctx context.Context, id primitive.ObjectID) error
	Free(ctx context.Context, id primitive.ObjectID) error
}

// AssignmentStore is the slice of the assignment store the resolver drives.
type AssignmentStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error)
	Create(ctx context.Context, a models.Assignment) (models.Assignment, error)
	Release(ctx context.Context, id primitive.ObjectID, remark string, endDate time.Time) (models.Assignment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ActiveByStudent(ctx context.Context, studentID primitive.ObjectID) (models.Assignment, error)
	HasActiveByStudent(ctx context.Context, studentID primitive.ObjectID) (bool, error)
	HasActiveByRoom(ctx context.Context, roomID primitive.ObjectID) (bool, error)
	ListExpired(ctx context.Context, before time.Time) ([]models.Assignment, error)
	MarkExpiryNotified(ctx context.Context, id primitive.ObjectID) error
}

// Notifier is the post-commit fanout. Calls happen only after the workflow
// write committed and their errors are logged, never propagated: a failed
// notification must not roll back a completed transition.
type Notifier interface {
	Notify(ctx context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error)
	NotifyRole(ctx context.Context, role, kind, title, message string) error
}

// Resolver owns every transition of the request-to-assignment workflow.
//
// A keyed mutex serializes transitions per request and per room so the
// read-modify-write of an assign or release never interleaves with another
// touching the same entities. The stores' conditional updates re-validate
// state at commit time as a second line of defense, so even a write that
// slipped past the locks (e.g. from another process) degrades to a clean
// conflict error rather than a double-booking.
type Resolver struct {
	requests    RequestStore
	rooms       RoomStore
	assignments AssignmentStore
	fanout      Notifier
	locks       *keymu.Mutex
	log         *zap.Logger
}

func NewResolver(requests RequestStore, rooms RoomStore, assignments AssignmentStore, fanout Notifier, logger *zap.Logger) *Resolver {
	return &Resolver{
		requests:    requests,
		rooms:       rooms,
		assignments: assignments,
		fanout:      fanout,
		locks:       keymu.New(),
		log:         logger,
	}
}

// Submit creates a pending request for a student. A student who already
// occupies a room, or already has a pending request, cannot submit another.
func (r *Resolver) Submit(ctx context.Context, studentID primitive.ObjectID, motive string) (models.Request, error) {
	key := "student:" + studentID.Hex()
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	housed, err := r.assignments.HasActiveByStudent(ctx, studentID)
	if err != nil {
		return models.Request{}, fmt.Errorf("check active assignment: %w", err)
	}
	if housed {
		r.notify(ctx, studentID, models.NotifyError, "Request blocked",
			"You already occupy a room and cannot submit a new housing request.")
		return models.Request{}, ErrAlreadyHoused
	}

	pending, err := r.requests.HasPending(ctx, studentID)
	if err != nil {
		return models.Request{}, fmt.Errorf("check pending request: %w", err)
	}
	if pending {
		return models.Request{}, ErrDuplicatePending
	}

	req, err := r.requests.Create(ctx, studentID, motive)
	if err != nil {
		return models.Request{}, fmt.Errorf("create request: %w", err)
	}

	r.notifyRole(ctx, models.RoleStaff, models.NotifyInfo, "New housing request",
		"A new housing request has been submitted.")
	return req, nil
}

// Reject moves a pending request to rejected and notifies the student.
// Rejecting a request that already left pending fails with the request
// store's ErrInvalidTransition and produces no duplicate notification.
func (r *Resolver) Reject(ctx context.Context, requestID primitive.ObjectID, reason string) (models.Request, error) {
	key := "request:" + requestID.Hex()
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	req, err := r.requests.Reject(ctx, requestID, reason)
	if err != nil {
		return models.Request{}, err
	}

	r.notify(ctx, req.StudentID, models.NotifyWarning, "Request rejected",
		"Your housing request has been rejected.")
	return req, nil
}

// Assign validates and executes the assignment of a room to a pending
// request as one all-or-nothing unit: room available -> occupied, assignment
// created active, request pending -> assigned. Room availability is
// re-checked at commit time by the conditional occupy, closing the race
// where two staff members pick the same room (or the room entered
// maintenance after selection). Any failure after a partial write rolls the
// earlier steps back, so no partial mutation is ever observable.
func (r *Resolver) Assign(ctx context.Context, requestID, roomID primitive.ObjectID, start time.Time, end *time.Time, remark string) (models.Assignment, error) {
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if end != nil && start.After(*end) {
		return models.Assignment{}, ErrDateRange
	}

	keys := []string{"request:" + requestID.Hex(), "room:" + roomID.Hex()}
	r.locks.LockAll(keys...)
	defer r.locks.UnlockAll(keys...)

	req, err := r.requests.GetByID(ctx, requestID)
	if err != nil {
		return models.Assignment{}, err
	}
	if req.Status != models.RequestPending {
		return models.Assignment{}, requeststore.ErrInvalidTransition
	}

	room, err := r.rooms.GetByID(ctx, roomID)
	if err != nil {
		return models.Assignment{}, err
	}

	// Commit step 1: take the room. The conditional update is the
	// authoritative availability check.
	if err := r.rooms.Occupy(ctx, roomID); err != nil {
		return models.Assignment{}, err
	}

	// Commit step 2: create the occupancy record.
	assignment, err := r.assignments.Create(ctx, models.Assignment{
		RequestID: requestID,
		StudentID: req.StudentID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		Remark:    remark,
	})
	if err != nil {
		r.rollbackRoom(ctx, roomID)
		return models.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}

	// Commit step 3: close the request.
	if _, err := r.requests.MarkAssigned(ctx, requestID, assignment.ID); err != nil {
		r.rollbackAssignment(ctx, assignment.ID)
		r.rollbackRoom(ctx, roomID)
		return models.Assignment{}, err
	}

	// Post-commit fanout, best-effort from here on.
	r.notify(ctx, req.StudentID, models.NotifySuccess, "Request accepted",
		"Your housing request has been accepted.")
	r.notify(ctx, req.StudentID, models.NotifySuccess, "New assignment",
		assignmentMessage(room.Number, start, end))
	r.notifyRole(ctx, models.RoleAdmin, models.NotifyInfo, "New assignment recorded",
		fmt.Sprintf("Room %s has been assigned to a student.", room.Number))

	return assignment, nil
}

// Release ends an active assignment: active -> false, end date stamped if
// unset, room freed unless a newer active assignment already holds it.
// Releasing an already-released assignment fails with the assignment
// store's ErrAlreadyReleased and leaves the room untouched.
func (r *Resolver) Release(ctx context.Context, assignmentID primitive.ObjectID, remark string) (models.Assignment, error) {
	a, err := r.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return models.Assignment{}, err
	}

	keys := []string{"assignment:" + assignmentID.Hex(), "room:" + a.RoomID.Hex()}
	r.locks.LockAll(keys...)
	defer r.locks.UnlockAll(keys...)

	released, err := r.assignments.Release(ctx, assignmentID, remark, today())
	if err != nil {
		return models.Assignment{}, err
	}

	r.freeRoomIfVacant(ctx, released.RoomID)
	r.notify(ctx, released.StudentID, models.NotifyInfo, "Assignment ended",
		"You have left your room. You may submit a new housing request.")
	return released, nil
}

// ReleaseCurrent lets a student vacate their own room early.
func (r *Resolver) ReleaseCurrent(ctx context.Context, studentID primitive.ObjectID, remark string) (models.Assignment, error) {
	a, err := r.assignments.ActiveByStudent(ctx, studentID)
	if err != nil {
		return models.Assignment{}, ErrNoActiveStay
	}
	return r.Release(ctx, a.ID, remark)
}

// SweepExpired releases every active assignment whose end date has passed:
// the student is notified exactly once (the expiry_notified flag survives
// sweep restarts), and the room is freed only when no newer active
// assignment already occupies it. Runs daily from the task scheduler.
func (r *Resolver) SweepExpired(ctx context.Context, now time.Time) error {
	cutoff := now.UTC().Truncate(24 * time.Hour)
	expired, err := r.assignments.ListExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list expired assignments: %w", err)
	}

	for _, a := range expired {
		keys := []string{"assignment:" + a.ID.Hex(), "room:" + a.RoomID.Hex()}
		r.locks.LockAll(keys...)

		released, err := r.assignments.Release(ctx, a.ID, "", cutoff)
		if err != nil {
			// Raced with a manual release; nothing left to do for this one.
			r.locks.UnlockAll(keys...)
			r.log.Debug("expiry sweep skipped assignment",
				zap.String("assignment_id", a.ID.Hex()),
				zap.Error(err))
			continue
		}

		if !released.ExpiryNotified {
			r.notify(ctx, released.StudentID, models.NotifyInfo, "Assignment expired",
				"Your housing period has come to an end.")
			if err := r.assignments.MarkExpiryNotified(ctx, released.ID); err != nil {
				r.log.Warn("failed to record expiry notification",
					zap.String("assignment_id", released.ID.Hex()),
					zap.Error(err))
			}
		}

		r.freeRoomIfVacant(ctx, released.RoomID)
		r.locks.UnlockAll(keys...)

		r.log.Info("released expired assignment",
			zap.String("assignment_id", released.ID.Hex()),
			zap.String("room_id", released.RoomID.Hex()))
	}
	return nil
}

// freeRoomIfVacant returns a room to the available pool unless another
// active assignment took it in the meantime (back-to-back re-assignment).
func (r *Resolver) freeRoomIfVacant(ctx context.Context, roomID primitive.ObjectID) {
	taken, err := r.assignments.HasActiveByRoom(ctx, roomID)
	if err != nil {
		r.log.Warn("room occupancy check failed; leaving room state unchanged",
			zap.String("room_id", roomID.Hex()),
			zap.Error(err))
		return
	}
	if taken {
		return
	}
	if err := r.rooms.Free(ctx, roomID); err != nil {
		r.log.Warn("failed to free room",
			zap.String("room_id", roomID.Hex()),
			zap.Error(err))
	}
}

func (r *Resolver) rollbackRoom(ctx context.Context, roomID primitive.ObjectID) {
	if err := r.rooms.Free(ctx, roomID); err != nil {
		r.log.Error("rollback: failed to free room",
			zap.String("room_id", roomID.Hex()),
			zap.Error(err))
	}
}

func (r *Resolver) rollbackAssignment(ctx context.Context, id primitive.ObjectID) {
	if err := r.assignments.Delete(ctx, id); err != nil {
		r.log.Error("rollback: failed to delete assignment",
			zap.String("assignment_id", id.Hex()),
			zap.Error(err))
	}
}

func (r *Resolver) notify(ctx context.Context, recipientID primitive.ObjectID, kind, title, message string) {
	if _, err := r.fanout.Notify(ctx, recipientID, kind, title, message); err != nil {
		r.log.Warn("post-commit notification failed",
			zap.String("recipient_id", recipientID.Hex()),
			zap.String("title", title),
			zap.Error(err))
	}
}

func (r *Resolver) notifyRole(ctx context.Context, role, kind, title, message string) {
	if err := r.fanout.NotifyRole(ctx, role, kind, title, message); err != nil {
		r.log.Warn("post-commit role fanout failed",
			zap.String("role", role),
			zap.String("title", title),
			zap.Error(err))
	}
}

func assignmentMessage(roomNumber string, start time.Time, end *time.Time) string {
	if end != nil {
		return fmt.Sprintf("You have been assigned to room %s from %s to %s.",
			roomNumber, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return fmt.Sprintf("You have been assigned to room %s starting %s.",
		roomNumber, start.Format("2006-01-02"))
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
