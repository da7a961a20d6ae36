// internal/domain/models/complaint.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Complaint statuses. Transitions are monotonic:
// submitted -> in_progress -> resolved, with no backward step.
const (
	ComplaintSubmitted  = "submitted"
	ComplaintInProgress = "in_progress"
	ComplaintResolved   = "resolved"
)

// ComplaintRank orders complaint statuses for the monotonic-transition check.
// Higher rank means further along; a status may only move to a higher rank.
var ComplaintRank = map[string]int{
	ComplaintSubmitted:  0,
	ComplaintInProgress: 1,
	ComplaintResolved:   2,
}

// Complaint is a free-text issue raised by a user.
type Complaint struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID primitive.ObjectID `bson:"author_id" json:"author_id"`
	Message  string             `bson:"message" json:"message"`
	Status   string             `bson:"status" json:"status"` // submitted | in_progress | resolved

	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
