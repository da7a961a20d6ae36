// internal/app/store/complaints/complaintstore.go
package complaintstore

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
	ErrNotFound = errors.New("complaint not found")

	// ErrBackwardTransition enforces the monotonic status ladder:
	// submitted -> in_progress -> resolved, never backward.
	ErrBackwardTransition = errors.New("complaint status cannot move backward")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("complaints")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Complaint, error) {
	var c models.Complaint
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Complaint{}, ErrNotFound
	}
	if err != nil {
		return models.Complaint{}, err
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, authorID primitive.ObjectID, message string) (models.Complaint, error) {
	now := time.Now().UTC()
	c := models.Complaint{
		ID:          primitive.NewObjectID(),
		AuthorID:    authorID,
		Message:     message,
		Status:      models.ComplaintSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Complaint{}, err
	}
	return c, nil
}

// SetStatus advances a complaint along the monotonic ladder. The filter
// only matches documents whose current status ranks strictly below the
// target, so repeating a transition (or trying to go backward) fails with
// ErrBackwardTransition rather than rewriting history.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Complaint, error) {
	rank, ok := models.ComplaintRank[status]
	if !ok {
		return models.Complaint{}, ErrBackwardTransition
	}
	var below []string
	for st, r := range models.ComplaintRank {
		if r < rank {
			below = append(below, st)
		}
	}

	var c models.Complaint
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": below}},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return models.Complaint{}, getErr
		}
		return models.Complaint{}, ErrBackwardTransition
	}
	if err != nil {
		return models.Complaint{}, err
	}
	return c, nil
}

// ListByAuthor returns the author's complaints, newest first.
func (s *Store) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Complaint, error) {
	return s.list(ctx, bson.M{"author_id": authorID}, 0)
}

// ListRecent returns the most recent complaints across all users for the
// staff dashboard.
func (s *Store) ListRecent(ctx context.Context, limit int64) ([]models.Complaint, error) {
	return s.list(ctx, bson.M{}, limit)
}

func (s *Store) list(ctx context.Context, filter bson.M, limit int64) ([]models.Complaint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Complaint
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of complaints.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// CountByStatus returns the number of complaints in the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}
