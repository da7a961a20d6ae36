// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsAdmin reports whether the request carries an admin session.
func IsAdmin(r *http.Request) bool { return hasRole(r, models.RoleAdmin) }

// IsStaff reports whether the request carries a staff session.
func IsStaff(r *http.Request) bool { return hasRole(r, models.RoleStaff) }

// IsStudent reports whether the request carries a student session.
func IsStudent(r *http.Request) bool { return hasRole(r, models.RoleStudent) }

func hasRole(r *http.Request, role string) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.Role == role
}

// UserID parses the signed-in user's ObjectID out of the session. The second
// return is false when there is no session or the stored ID is malformed.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// homes maps each role to its landing page after login.
var homes = map[string]string{
	models.RoleStudent: "/dashboard/student",
	models.RoleStaff:   "/dashboard/staff",
	models.RoleAdmin:   "/dashboard/admin",
}

// HomeFor returns the post-login landing path for a role. Unknown roles land
// on the student dashboard, the least privileged surface.
func HomeFor(role string) string {
	if home, ok := homes[role]; ok {
		return home
	}
	return homes[models.RoleStudent]
}
