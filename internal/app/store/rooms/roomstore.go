// internal/app/store/rooms/roomstore.go
package roomstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dormdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound        = errors.New("room not found")
	ErrDuplicateNumber = errors.New("a room with this number already exists")

	// ErrUnavailable is returned when a state flip finds the room in any
	// state other than the one required. This is the commit-time recheck
	// that closes the race between two staff members assigning the same
	// room: the filter re-validates state at the moment of the write, not
	// at selection time.
	ErrUnavailable = errors.New("room is not available")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rooms")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error) {
	var room models.Room
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Room{}, ErrNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (s *Store) Create(ctx context.Context, room models.Room) (models.Room, error) {
	now := time.Now().UTC()
	room.ID = primitive.NewObjectID()
	if room.State == "" {
		room.State = models.RoomAvailable
	}
	if room.Capacity == 0 {
		room.Capacity = models.CapacityForType(room.RoomType)
	}
	room.CreatedAt = now
	room.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, room); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Room{}, ErrDuplicateNumber
		}
		return models.Room{}, err
	}
	return room, nil
}

// UpdateInfo updates descriptive fields. Room state is deliberately not
// updatable here except to and from maintenance; occupancy flips flow
// exclusively through Occupy/Free so the no-double-booking invariant holds.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, number, building, roomType string, capacity int) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if number != "" {
		set["number"] = number
	}
	if building != "" {
		set["building"] = building
	}
	if roomType != "" {
		set["room_type"] = roomType
		if capacity == 0 {
			capacity = models.CapacityForType(roomType)
		}
	}
	if capacity > 0 {
		set["capacity"] = capacity
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateNumber
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMaintenance moves a room between available and maintenance. A room that
// is occupied cannot enter maintenance; release it first.
func (s *Store) SetMaintenance(ctx context.Context, id primitive.ObjectID, down bool) error {
	from, to := models.RoomAvailable, models.RoomMaintenance
	if !down {
		from, to = models.RoomMaintenance, models.RoomAvailable
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "state": from},
		bson.M{"$set": bson.M{"state": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrUnavailable
	}
	return nil
}

// Occupy flips available -> occupied. The filter requires the room to be
// available *now*; zero matches on an existing room means it was taken (or
// entered maintenance) since selection, surfaced as ErrUnavailable.
func (s *Store) Occupy(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "state": models.RoomAvailable},
		bson.M{"$set": bson.M{"state": models.RoomOccupied, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrUnavailable
	}
	return nil
}

// Free flips occupied -> available. Freeing a room that is not occupied is a
// no-op: release paths may race with the expiry sweep, and the room being
// already free is the desired outcome.
func (s *Store) Free(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "state": models.RoomOccupied},
		bson.M{"$set": bson.M{"state": models.RoomAvailable, "updated_at": time.Now().UTC()}},
	)
	return err
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListAvailable returns available rooms, optionally filtered by type.
func (s *Store) ListAvailable(ctx context.Context, roomType string) ([]models.Room, error) {
	filter := bson.M{"state": models.RoomAvailable}
	if roomType != "" {
		filter["room_type"] = roomType
	}
	return s.list(ctx, filter)
}

// ListAll returns every room, ordered by number.
func (s *Store) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.list(ctx, bson.M{})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Room, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Room
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByState returns the number of rooms in the given state.
func (s *Store) CountByState(ctx context.Context, state string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"state": state})
}

// Count returns the total number of rooms.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
