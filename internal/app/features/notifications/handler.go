// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	notificationstore "github.com/dalemusser/dormdesk/internal/app/store/notifications"
	"github.com/dalemusser/dormdesk/internal/app/notify"
	"github.com/dalemusser/dormdesk/internal/app/system/authz"
	"github.com/dalemusser/dormdesk/internal/app/system/httperr"
	"github.com/dalemusser/dormdesk/internal/app/system/timeouts"
	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Notifications *notificationstore.Store
	Fanout        *notify.Fanout
	Hub           *unreadsync.Hub
	Reconciler    *unreadsync.Reconciler
	Log           *zap.Logger
}

func NewHandler(store *notificationstore.Store, fanout *notify.Fanout, hub *unreadsync.Hub, rec *unreadsync.Reconciler, logger *zap.Logger) *Handler {
	return &Handler{Notifications: store, Fanout: fanout, Hub: hub, Reconciler: rec, Log: logger}
}

// ListMine handles GET /notifications/me: the user's notifications, newest
// first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Notifications.ListByRecipient(ctx, userID)
	if err != nil {
		h.Log.Error("notifications: list failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	httperr.JSON(w, http.StatusOK, list)
}

// Stats handles GET /notifications/me/stats: {unread, total}. This is the
// authoritative pair every badge surface reconciles against.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	stats, err := h.Notifications.GetStats(ctx, userID)
	if err != nil {
		h.Log.Error("notifications: stats failed", zap.Error(err))
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, stats)
}

// MarkRead handles PUT /notifications/{id}/read. Only the owner may mark;
// repeating the call is a no-op 200.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.BadRequest(w, "invalid notification id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Fanout.MarkRead(ctx, id, userID); err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead handles PUT /notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Fanout.MarkAllRead(ctx, userID); err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// Stream handles GET /notifications/me/stream: a server-sent-event feed of
// unread counts. On connect the client is immediately reconciled against the
// store, then receives every subsequent broadcast for the session's user
// until it disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		httperr.SessionExpired(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httperr.BadRequest(w, "streaming unsupported")
		return
	}

	sub := h.Hub.Subscribe(userID)
	defer h.Hub.Unsubscribe(sub)

	// Fresh fetch on mount heals whatever the surface missed while detached.
	if _, err := h.Reconciler.ReconcileUser(r.Context(), userID); err != nil {
		h.Log.Warn("notifications: reconcile on stream mount failed",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-sub.C:
			buf, err := json.Marshal(c)
			if err != nil {
				h.Log.Error("notifications: marshal count failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: unread\ndata: %s\n\n", buf)
			flusher.Flush()
		}
	}
}
