// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment is the occupancy record binding a student's request to a room
// for a date range. Exactly one active assignment may exist per student, and
// a room may be held by at most one active assignment at a time.
type Assignment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID primitive.ObjectID `bson:"request_id" json:"request_id"`
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	RoomID    primitive.ObjectID `bson:"room_id" json:"room_id"`

	StartDate time.Time  `bson:"start_date" json:"start_date"`
	EndDate   *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Remark    string     `bson:"remark,omitempty" json:"remark,omitempty"`

	Active bool `bson:"active" json:"active"`

	// ExpiryNotified records that the end-of-stay notification has been sent,
	// so the expiry sweep never notifies the same student twice.
	ExpiryNotified bool `bson:"expiry_notified" json:"-"`

	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ReleasedAt *time.Time `bson:"released_at,omitempty" json:"released_at,omitempty"`
}
