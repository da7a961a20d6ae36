package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/dormdesk/internal/domain/models"
)

const testSessionKey = "0123456789abcdef0123456789abcdef"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSignedIn_NoUserGets401SessionExpired(t *testing.T) {
	h := RequireSignedIn(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/requests", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var body struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Kind != "session_expired" {
		t.Errorf("kind = %q, want session_expired", body.Kind)
	}
}

func TestRequireSignedIn_PassesWithUser(t *testing.T) {
	h := RequireSignedIn(okHandler())
	rr := httptest.NewRecorder()
	r := WithTestUser(httptest.NewRequest(http.MethodGet, "/requests", nil),
		&SessionUser{ID: primitive.NewObjectID().Hex(), Role: models.RoleStudent})
	h.ServeHTTP(rr, r)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestRequireRole_WrongRoleGets403(t *testing.T) {
	h := RequireRole(models.RoleStaff, models.RoleAdmin)(okHandler())

	cases := []struct {
		role string
		want int
	}{
		{models.RoleStudent, http.StatusForbidden},
		{models.RoleStaff, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r := WithTestUser(httptest.NewRequest(http.MethodPost, "/rooms", nil),
			&SessionUser{ID: primitive.NewObjectID().Hex(), Role: tc.role})
		h.ServeHTTP(rr, r)
		if rr.Code != tc.want {
			t.Errorf("role %s: status = %d, want %d", tc.role, rr.Code, tc.want)
		}
	}
}

func TestRequireRole_NoSessionGets401(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(okHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestSignInThenLoadSessionUser_RoundTrip(t *testing.T) {
	if err := InitSessionStore(testSessionKey, "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}
	t.Cleanup(func() { Store = nil })

	u := models.User{
		ID:       primitive.NewObjectID(),
		FullName: "Dana Whitfield",
		Email:    "dana@example.edu",
		Role:     models.RoleStaff,
	}

	// Sign in and capture the cookie.
	rr := httptest.NewRecorder()
	if err := SignIn(rr, httptest.NewRequest(http.MethodPost, "/login", nil), u); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn set no cookie")
	}

	// Replay the cookie through the middleware.
	var got *SessionUser
	h := LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("no user in context after replaying session cookie")
	}
	if got.ID != u.ID.Hex() || got.Role != models.RoleStaff || got.Email != u.Email {
		t.Errorf("session user = %+v, want id %s role staff", got, u.ID.Hex())
	}
}

func TestSignOut_ClearsSession(t *testing.T) {
	if err := InitSessionStore(testSessionKey, "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore failed: %v", err)
	}
	t.Cleanup(func() { Store = nil })

	rr := httptest.NewRecorder()
	if err := SignOut(rr, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	var expired bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionName && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("SignOut must expire the session cookie")
	}
}
