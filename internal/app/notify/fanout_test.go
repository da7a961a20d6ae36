package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memStore is an in-memory NotificationStore with the same monotone
// read-marking semantics as the Mongo store.
type memStore struct {
	notifications []models.Notification
	appendErr     error
}

func (m *memStore) Append(_ context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error) {
	if m.appendErr != nil {
		return models.Notification{}, m.appendErr
	}
	n := models.Notification{
		ID:          primitive.NewObjectID(),
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *memStore) MarkRead(_ context.Context, id, ownerID primitive.ObjectID) error {
	for i, n := range m.notifications {
		if n.ID == id && n.RecipientID == ownerID {
			m.notifications[i].Read = true
			return nil
		}
	}
	return errors.New("notification not found")
}

func (m *memStore) MarkAllRead(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	var flipped int64
	for i, n := range m.notifications {
		if n.RecipientID == ownerID && !n.Read {
			m.notifications[i].Read = true
			flipped++
		}
	}
	return flipped, nil
}

func (m *memStore) CountUnread(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	var n int64
	for _, note := range m.notifications {
		if note.RecipientID == ownerID && !note.Read {
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	byRole map[string][]models.User
}

func (m *memUsers) ListByRole(_ context.Context, role string) ([]models.User, error) {
	return m.byRole[role], nil
}

func newFanout(store *memStore, users *memUsers) (*Fanout, *unreadsync.Hub) {
	hub := unreadsync.NewHub(zap.NewNop())
	if users == nil {
		users = &memUsers{}
	}
	return New(store, users, hub, zap.NewNop()), hub
}

func latestFrom(sub *unreadsync.Subscriber) (unreadsync.Count, bool) {
	var last unreadsync.Count
	var got bool
	for {
		select {
		case c := <-sub.C:
			last, got = c, true
		default:
			return last, got
		}
	}
}

func TestNotify_AppendsUnreadAndBroadcasts(t *testing.T) {
	store := &memStore{}
	fanout, hub := newFanout(store, nil)
	student := primitive.NewObjectID()
	sub := hub.Subscribe(student)

	n, err := fanout.Notify(context.Background(), student, models.NotifySuccess, "Request accepted", "Your housing request was accepted")
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if n.Read {
		t.Error("new notification must start unread")
	}

	c, ok := latestFrom(sub)
	if !ok {
		t.Fatal("no count broadcast after Notify")
	}
	if c.Unread != 1 {
		t.Errorf("broadcast unread = %d, want 1", c.Unread)
	}
}

func TestNotify_AppendFailurePropagates(t *testing.T) {
	store := &memStore{appendErr: errors.New("write failed")}
	fanout, hub := newFanout(store, nil)
	student := primitive.NewObjectID()
	sub := hub.Subscribe(student)

	if _, err := fanout.Notify(context.Background(), student, models.NotifyInfo, "t", "m"); err == nil {
		t.Fatal("expected error from failed append")
	}
	if _, got := latestFrom(sub); got {
		t.Error("count broadcast despite failed append")
	}
}

func TestNotifyRole_ReachesEveryHolder(t *testing.T) {
	store := &memStore{}
	staffA := models.User{ID: primitive.NewObjectID(), Role: models.RoleStaff}
	staffB := models.User{ID: primitive.NewObjectID(), Role: models.RoleStaff}
	users := &memUsers{byRole: map[string][]models.User{models.RoleStaff: {staffA, staffB}}}
	fanout, _ := newFanout(store, users)

	err := fanout.NotifyRole(context.Background(), models.RoleStaff, models.NotifyInfo, "New request", "A new housing request was submitted")
	if err != nil {
		t.Fatalf("NotifyRole failed: %v", err)
	}
	if len(store.notifications) != 2 {
		t.Fatalf("got %d notifications, want 2", len(store.notifications))
	}
	for _, id := range []primitive.ObjectID{staffA.ID, staffB.ID} {
		n, _ := store.CountUnread(context.Background(), id)
		if n != 1 {
			t.Errorf("staff %s unread = %d, want 1", id.Hex(), n)
		}
	}
}

func TestMarkAllRead_ThenCountIsZero(t *testing.T) {
	store := &memStore{}
	fanout, hub := newFanout(store, nil)
	student := primitive.NewObjectID()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := fanout.Notify(ctx, student, models.NotifyInfo, "t", "m"); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}

	sub := hub.Subscribe(student)
	if err := fanout.MarkAllRead(ctx, student); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}

	// The stats fetch immediately after must agree with the broadcast.
	unread, _ := store.CountUnread(ctx, student)
	if unread != 0 {
		t.Errorf("store unread = %d, want 0", unread)
	}
	c, ok := latestFrom(sub)
	if !ok || c.Unread != 0 {
		t.Errorf("broadcast after MarkAllRead = %+v (ok=%v), want unread 0", c, ok)
	}
}

func TestMarkRead_IdempotentRepublishesSameCount(t *testing.T) {
	store := &memStore{}
	fanout, hub := newFanout(store, nil)
	student := primitive.NewObjectID()
	ctx := context.Background()

	n, err := fanout.Notify(ctx, student, models.NotifyInfo, "t", "m")
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if err := fanout.MarkRead(ctx, n.ID, student); err != nil {
		t.Fatalf("first MarkRead failed: %v", err)
	}
	sub := hub.Subscribe(student)
	if err := fanout.MarkRead(ctx, n.ID, student); err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}

	c, ok := latestFrom(sub)
	if !ok || c.Unread != 0 {
		t.Errorf("after repeat MarkRead count = %+v (ok=%v), want 0", c, ok)
	}
}
