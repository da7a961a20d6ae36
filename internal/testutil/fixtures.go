package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		EmailCI:    text.Fold(email),
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateRoom creates a test room in the given state.
func (f *Fixtures) CreateRoom(ctx context.Context, number, state string) models.Room {
	f.t.Helper()

	now := time.Now().UTC()
	room := models.Room{
		ID:        primitive.NewObjectID(),
		Number:    number,
		Building:  "A",
		RoomType:  models.RoomTypeSingle,
		Capacity:  1,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("rooms").InsertOne(ctx, room); err != nil {
		f.t.Fatalf("failed to create test room: %v", err)
	}
	return room
}

// CreateRequest creates a housing request in the given status.
func (f *Fixtures) CreateRequest(ctx context.Context, studentID primitive.ObjectID, status string) models.Request {
	f.t.Helper()

	req := models.Request{
		ID:          primitive.NewObjectID(),
		StudentID:   studentID,
		Status:      status,
		SubmittedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("failed to create test request: %v", err)
	}
	return req
}

// CreateAssignment creates an active assignment binding a student to a room.
func (f *Fixtures) CreateAssignment(ctx context.Context, studentID, roomID primitive.ObjectID, start time.Time, end *time.Time) models.Assignment {
	f.t.Helper()

	a := models.Assignment{
		ID:        primitive.NewObjectID(),
		RequestID: primitive.NewObjectID(),
		StudentID: studentID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("assignments").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test assignment: %v", err)
	}
	return a
}

// CreateNotification creates a notification for the recipient, unread unless
// read is true.
func (f *Fixtures) CreateNotification(ctx context.Context, recipientID primitive.ObjectID, title string, read bool) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:          primitive.NewObjectID(),
		RecipientID: recipientID,
		Kind:        models.NotifyInfo,
		Title:       title,
		Message:     "test notification",
		Read:        read,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}
