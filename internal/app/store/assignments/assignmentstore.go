// internal/app/store/assignments/assignmentstore.go
package assignmentstore

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

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound        = errors.New("assignment not found")
	ErrAlreadyReleased = errors.New("assignment is already released")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assignment{}, ErrNotFound
	}
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Create inserts a new active assignment.
func (s *Store) Create(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	a.ID = primitive.NewObjectID()
	a.Active = true
	a.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Release flips active -> inactive, stamping released_at and setting the end
// date if the assignment had none. The conditional filter makes a second
// release fail with ErrAlreadyReleased instead of silently succeeding.
func (s *Store) Release(ctx context.Context, id primitive.ObjectID, remark string, endDate time.Time) (models.Assignment, error) {
	now := time.Now().UTC()
	set := bson.M{
		"active":      false,
		"released_at": now,
	}
	if remark != "" {
		set["remark"] = remark
	}

	var a models.Assignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		[]bson.M{
			{"$set": set},
			// end_date is only filled when unset; an explicit earlier end
			// date from the original assign call is preserved.
			{"$set": bson.M{"end_date": bson.M{"$ifNull": []any{"$end_date", endDate}}}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return models.Assignment{}, getErr
		}
		return models.Assignment{}, ErrAlreadyReleased
	}
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Delete removes an assignment. Only used as the compensating step of the
// resolver's rollback; released assignments are otherwise kept for audit.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ActiveByStudent returns the student's active assignment, if any.
func (s *Store) ActiveByStudent(ctx context.Context, studentID primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"student_id": studentID, "active": true}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assignment{}, ErrNotFound
	}
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// HasActiveByStudent reports whether the student currently occupies a room.
func (s *Store) HasActiveByStudent(ctx context.Context, studentID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"student_id": studentID, "active": true})
	return n > 0, err
}

// HasActiveByRoom reports whether any active assignment currently holds the
// room. The expiry sweep uses this to decide whether a room can be freed:
// a newer assignment may already occupy the room a released one is leaving.
func (s *Store) HasActiveByRoom(ctx context.Context, roomID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"room_id": roomID, "active": true})
	return n > 0, err
}

// ListExpired returns active assignments whose end date has passed.
// An assignment ending today is still active today; only end_date strictly
// before the cutoff counts as expired.
func (s *Store) ListExpired(ctx context.Context, before time.Time) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"active":   true,
		"end_date": bson.M{"$ne": nil, "$lt": before},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkExpiryNotified records that the end-of-stay notification went out.
func (s *Store) MarkExpiryNotified(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"expiry_notified": true}})
	return err
}

// CountActive returns the number of active assignments.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"active": true})
}
