// internal/app/notify/fanout.go
package notify

import (
	"context"
	"fmt"

	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NotificationStore is the slice of the notification store the fanout needs.
type NotificationStore interface {
	Append(ctx context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error)
	MarkRead(ctx context.Context, id, ownerID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
	CountUnread(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// RoleLister resolves the recipients of a role-wide broadcast.
type RoleLister interface {
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// Fanout is the only write path into notifications. Every workflow
// transition that a user should see flows through here, and every write is
// followed by a publish of the recipient's fresh authoritative unread count
// on the sync channel.
//
// Fanout is best-effort by contract: a workflow transition that already
// committed is never rolled back because a notification write failed, so
// callers on the post-commit path log the returned error instead of
// propagating it. The periodic reconciliation catches up any badge the
// failure left stale.
type Fanout struct {
	store NotificationStore
	users RoleLister
	hub   *unreadsync.Hub
	log   *zap.Logger
}

func New(store NotificationStore, users RoleLister, hub *unreadsync.Hub, logger *zap.Logger) *Fanout {
	return &Fanout{store: store, users: users, hub: hub, log: logger}
}

// Notify appends an unread notification for one recipient and broadcasts
// their new unread count.
func (f *Fanout) Notify(ctx context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error) {
	n, err := f.store.Append(ctx, recipientID, kind, title, message)
	if err != nil {
		return models.Notification{}, fmt.Errorf("append notification: %w", err)
	}
	f.publishCount(ctx, recipientID)
	return n, nil
}

// NotifyRole sends the same notification to every user holding the role
// (all staff on a new request, all admins on a new assignment). Individual
// failures are logged and skipped; the broadcast is not transactional.
func (f *Fanout) NotifyRole(ctx context.Context, role, kind, title, message string) error {
	recipients, err := f.users.ListByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("list %s users: %w", role, err)
	}
	for _, u := range recipients {
		if _, err := f.Notify(ctx, u.ID, kind, title, message); err != nil {
			f.log.Warn("role fanout skipped recipient",
				zap.String("role", role),
				zap.String("recipient_id", u.ID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

// MarkRead flips one notification to read and broadcasts the owner's new
// count. Marking an already-read notification is a no-op that still
// re-publishes the (unchanged) authoritative count.
func (f *Fanout) MarkRead(ctx context.Context, id, ownerID primitive.ObjectID) error {
	if err := f.store.MarkRead(ctx, id, ownerID); err != nil {
		return err
	}
	f.publishCount(ctx, ownerID)
	return nil
}

// MarkAllRead flips every unread notification for the owner and broadcasts
// the resulting count (always zero when the store write succeeded).
func (f *Fanout) MarkAllRead(ctx context.Context, ownerID primitive.ObjectID) error {
	if _, err := f.store.MarkAllRead(ctx, ownerID); err != nil {
		return err
	}
	f.publishCount(ctx, ownerID)
	return nil
}

// publishCount fetches the authoritative unread count and broadcasts it.
// Publishes only ever happen here, immediately after a store write or
// fetch, which is what makes every broadcast value safe to apply.
func (f *Fanout) publishCount(ctx context.Context, userID primitive.ObjectID) {
	unread, err := f.store.CountUnread(ctx, userID)
	if err != nil {
		// The badge stays stale until the next reconciliation cycle.
		f.log.Warn("unread count fetch failed after write",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return
	}
	f.hub.Publish(unreadsync.Count{UserID: userID, Unread: unread})
}
