// internal/app/system/unreadsync/reconciler.go
package unreadsync

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CounterSource yields the authoritative unread count for a user. The
// notification store is the production implementation; the query result is
// by definition the value every surface must converge on.
type CounterSource interface {
	CountUnread(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// Reconciler heals surfaces that missed a broadcast (e.g. they were not
// mounted when it happened) by re-fetching the authoritative count and
// publishing it. Divergence between surfaces is tolerated transiently; one
// reconciliation cycle restores agreement.
type Reconciler struct {
	hub *Hub
	src CounterSource
	log *zap.Logger
}

func NewReconciler(hub *Hub, src CounterSource, logger *zap.Logger) *Reconciler {
	return &Reconciler{hub: hub, src: src, log: logger}
}

// ReconcileUser fetches the authoritative count for one user and publishes
// it. Called on every surface mount and by the periodic sweep.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID primitive.ObjectID) (Count, error) {
	unread, err := r.src.CountUnread(ctx, userID)
	if err != nil {
		return Count{}, err
	}
	c := Count{UserID: userID, Unread: unread, EmittedAt: time.Now().UTC()}
	r.hub.Publish(c)
	return c, nil
}

// ReconcileAll re-fetches the authoritative count for every user that has a
// subscribed surface. Errors are logged per user and do not stop the sweep.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	for _, userID := range r.hub.SubscribedUsers() {
		if _, err := r.ReconcileUser(ctx, userID); err != nil {
			r.log.Warn("unread reconciliation failed",
				zap.String("user_id", userID.Hex()),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
