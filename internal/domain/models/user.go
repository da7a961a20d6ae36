// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical role identifiers.
//
// These values are stored in the database in the User.Role field and are
// used throughout the application as stable keys. Route guards and the
// dashboard dispatch table key off these exact strings.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Roles is the full set of allowed role identifiers.
var Roles = []string{RoleStudent, RoleStaff, RoleAdmin}

// User represents students, dorm staff, and admins.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	EmailCI    string             `bson:"email_ci" json:"email_ci"`

	// PasswordHash is a bcrypt hash; never serialized to clients.
	PasswordHash string `bson:"password_hash" json:"-"`

	Role   string `bson:"role" json:"role"` // student | staff | admin
	Status string `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
