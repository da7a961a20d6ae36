// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/limits"
	"github.com/dalemusser/dormdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users   *userstore.Store
	Limiter *ratelimit.LoginLimiter
	Log     *zap.Logger
}

func NewHandler(users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Limiter: ratelimit.NewLoginLimiter(), Log: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User models.User `json:"user"`
	Home string      `json:"home"`
}

// Login handles POST /login. Successful authentication sets the session
// cookie and returns the user plus their role's landing page. Bad email and
// bad password are indistinguishable to the caller.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		httperr.BadRequest(w, "malformed JSON body")
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		httperr.Validation(w, "email and password are required")
		return
	}

	if !h.Limiter.Check(r, creds.Email) {
		h.Log.Warn("login throttled",
			zap.String("ip", ratelimit.ClientIP(r)))
		httperr.JSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "too many login attempts, try again later",
			"kind":  "rate_limited",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.rejectCredentials(w)
			return
		}
		h.Log.Error("login: user lookup failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		h.rejectCredentials(w)
		return
	}

	if err := auth.SignIn(w, r, *u); err != nil {
		h.Log.Error("login: session write failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}

	h.Limiter.ResetEmail(creds.Email)
	h.Log.Info("user signed in",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role))
	httperr.JSON(w, http.StatusOK, loginResponse{User: *u, Home: authz.HomeFor(u.Role)})
}

func (h *Handler) rejectCredentials(w http.ResponseWriter) {
	httperr.JSON(w, http.StatusUnauthorized, map[string]string{
		"error": "invalid email or password",
		"kind":  "invalid_credentials",
	})
}
