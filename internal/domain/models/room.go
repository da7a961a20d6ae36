// internal/domain/models/room.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room states. A room may be referenced by at most one active assignment at
// a time; all state flips go through the assignment resolver.
const (
	RoomAvailable   = "available"
	RoomOccupied    = "occupied"
	RoomMaintenance = "maintenance"
)

// Canonical room type identifiers. Capacity is derived from the type unless
// an explicit capacity is provided at creation.
const (
	RoomTypeSingle = "single"
	RoomTypeDouble = "double"
	RoomTypeTriple = "triple"
)

// RoomTypes is the full set of allowed room type identifiers.
var RoomTypes = []string{RoomTypeSingle, RoomTypeDouble, RoomTypeTriple}

// CapacityForType returns the default capacity for a room type.
// Unknown types default to 1.
func CapacityForType(roomType string) int {
	switch roomType {
	case RoomTypeDouble:
		return 2
	case RoomTypeTriple:
		return 3
	default:
		return 1
	}
}

// Room is a dormitory room.
type Room struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number   string             `bson:"number" json:"number"` // unique
	Building string             `bson:"building,omitempty" json:"building,omitempty"`
	RoomType string             `bson:"room_type" json:"room_type"` // single | double | triple
	Capacity int                `bson:"capacity" json:"capacity"`
	State    string             `bson:"state" json:"state"` // available | occupied | maintenance

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
