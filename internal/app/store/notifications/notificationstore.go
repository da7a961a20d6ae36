// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists notifications. Documents are append-only aside from the
// read flag, which only ever moves false -> true; nothing is deleted, so the
// collection doubles as an audit trail of every workflow transition a user
// was told about.
type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("notification not found")

// Stats is the authoritative unread/total pair for one user. Unread is the
// value every UI surface must converge on.
type Stats struct {
	Unread int64 `json:"unread"`
	Total  int64 `json:"total"`
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Append inserts a new unread notification and returns it.
func (s *Store) Append(ctx context.Context, recipientID primitive.ObjectID, kind, title, message string) (models.Notification, error) {
	n := models.Notification{
		ID:          primitive.NewObjectID(),
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// MarkRead flips one notification to read. Only the owner may mark it, and
// marking an already-read notification matches zero documents and is treated
// as a no-op, not an error.
func (s *Store) MarkRead(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": ownerID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification for the user. Idempotent:
// a second call matches nothing and succeeds.
func (s *Store) MarkAllRead(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"recipient_id": ownerID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListByRecipient returns the user's notifications, newest first.
func (s *Store) ListByRecipient(ctx context.Context, ownerID primitive.ObjectID) ([]models.Notification, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"recipient_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUnread is the authoritative unread count the sync layer reconciles
// against. Every published badge value ultimately derives from this query.
func (s *Store) CountUnread(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_id": ownerID, "read": false})
}

// GetStats returns the unread and total counts for one user.
func (s *Store) GetStats(ctx context.Context, ownerID primitive.ObjectID) (Stats, error) {
	unread, err := s.CountUnread(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	total, err := s.c.CountDocuments(ctx, bson.M{"recipient_id": ownerID})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Unread: unread, Total: total}, nil
}
