// internal/domain/models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Housing request statuses. "pending" is the only state that permits a
// transition; "assigned" and "rejected" are terminal.
const (
	RequestPending  = "pending"
	RequestAssigned = "assigned"
	RequestRejected = "rejected"
)

// Request is a student's housing application.
//
// A request is created by a student and mutated only by staff action.
// Once it leaves "pending" it is immutable; re-applying a transition is
// rejected rather than silently accepted, so a double-click or retried
// network call can never produce duplicate notifications.
type Request struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	Motive    string             `bson:"motive,omitempty" json:"motive,omitempty"`
	Status    string             `bson:"status" json:"status"` // pending | assigned | rejected

	// Reason holds the staff-supplied rejection reason, when rejected.
	Reason string `bson:"reason,omitempty" json:"reason,omitempty"`

	// AssignmentID links to the assignment that closed this request.
	AssignmentID *primitive.ObjectID `bson:"assignment_id,omitempty" json:"assignment_id,omitempty"`

	SubmittedAt time.Time  `bson:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
