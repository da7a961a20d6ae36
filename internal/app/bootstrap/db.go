// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and returns the dependency
// bundle the rest of the hooks receive.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes the stores depend on. All of these are
// idempotent; Mongo treats re-creating an identical index as a no-op.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	specs := []struct {
		collection string
		model      mongo.IndexModel
	}{
		// Login and role-fanout lookups; the unique email invariant.
		{"users", mongo.IndexModel{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{"users", mongo.IndexModel{
			Keys: bson.D{{Key: "role", Value: 1}},
		}},

		// Unique room numbers; available-room listings.
		{"rooms", mongo.IndexModel{
			Keys:    bson.D{{Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{"rooms", mongo.IndexModel{
			Keys: bson.D{{Key: "state", Value: 1}},
		}},

		// One pending request per student, enforced at the database level as
		// well as in the submit path.
		{"requests", mongo.IndexModel{
			Keys: bson.D{{Key: "student_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		}},
		{"requests", mongo.IndexModel{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: 1}},
		}},

		// At most one active assignment per student and per room.
		{"assignments", mongo.IndexModel{
			Keys: bson.D{{Key: "student_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		}},
		{"assignments", mongo.IndexModel{
			Keys: bson.D{{Key: "room_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		}},
		{"assignments", mongo.IndexModel{
			Keys: bson.D{{Key: "active", Value: 1}, {Key: "end_date", Value: 1}},
		}},

		// Unread badge counts and per-user notification lists.
		{"notifications", mongo.IndexModel{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}},
		}},
		{"notifications", mongo.IndexModel{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		}},

		{"complaints", mongo.IndexModel{
			Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "submitted_at", Value: -1}},
		}},
	}

	for _, spec := range specs {
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.collection, err)
		}
	}

	logger.Info("database indexes ensured", zap.Int("count", len(specs)))
	return nil
}
