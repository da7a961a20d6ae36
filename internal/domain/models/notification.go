// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds, matching the badge styling the UI applies.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notification is a per-user message produced as a side effect of a workflow
// transition. Notifications are append-only: the only mutation ever applied
// is the read flag flipping false -> true, and they are never deleted.
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID `bson:"recipient_id" json:"recipient_id"`
	Kind        string             `bson:"kind" json:"kind"` // info | success | warning | error
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	Read        bool               `bson:"read" json:"read"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
