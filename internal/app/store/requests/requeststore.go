// internal/app/store/requests/requeststore.go
package requeststore

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

// Store is the canonical source of truth for housing request state.
//
// Transitions use conditional updates whose filter includes the current
// status, so a transition applied to a request that already left "pending"
// matches nothing and surfaces ErrInvalidTransition instead of silently
// re-applying. That conditional filter is what makes reject/assign safe
// against double-clicks and retried calls.
type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound          = errors.New("request not found")
	ErrInvalidTransition = errors.New("request is not pending")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("requests")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Request, error) {
	var req models.Request
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Request{}, ErrNotFound
	}
	if err != nil {
		return models.Request{}, err
	}
	return req, nil
}

// Create inserts a new pending request for a student.
func (s *Store) Create(ctx context.Context, studentID primitive.ObjectID, motive string) (models.Request, error) {
	req := models.Request{
		ID:          primitive.NewObjectID(),
		StudentID:   studentID,
		Motive:      motive,
		Status:      models.RequestPending,
		SubmittedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, req); err != nil {
		return models.Request{}, err
	}
	return req, nil
}

// Reject transitions pending -> rejected. It fails with ErrInvalidTransition
// when the request exists but is no longer pending, and ErrNotFound when no
// such request exists.
func (s *Store) Reject(ctx context.Context, id primitive.ObjectID, reason string) (models.Request, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":     models.RequestRejected,
		"decided_at": now,
	}
	if reason != "" {
		set["reason"] = reason
	}
	return s.transition(ctx, id, set)
}

// MarkAssigned transitions pending -> assigned, recording the assignment
// that closed the request. Same failure semantics as Reject.
func (s *Store) MarkAssigned(ctx context.Context, id, assignmentID primitive.ObjectID) (models.Request, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, bson.M{
		"status":        models.RequestAssigned,
		"assignment_id": assignmentID,
		"decided_at":    now,
	})
}

func (s *Store) transition(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Request, error) {
	var req models.Request
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish "gone" from "already decided".
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return models.Request{}, getErr
		}
		return models.Request{}, ErrInvalidTransition
	}
	if err != nil {
		return models.Request{}, err
	}
	return req, nil
}

// Reopen reverts assigned -> pending. It exists solely as the compensating
// step of the assignment resolver's rollback and must not be exposed as an
// API operation; terminal states stay terminal for callers.
func (s *Store) Reopen(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RequestAssigned},
		bson.M{"$set": bson.M{"status": models.RequestPending}, "$unset": bson.M{"assignment_id": "", "decided_at": ""}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// HasPending reports whether the student already has a pending request.
func (s *Store) HasPending(ctx context.Context, studentID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"student_id": studentID, "status": models.RequestPending})
	return n > 0, err
}

// ListPending returns the staff work queue, oldest first, so the
// longest-waiting student surfaces on top.
func (s *Store) ListPending(ctx context.Context) ([]models.Request, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"status": models.RequestPending},
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Request
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStudent returns every request the student ever submitted, newest first.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Request, error) {
	return s.list(ctx, bson.M{"student_id": studentID})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Request, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Request
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus returns the number of requests in the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}
