package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique indexes the write paths rely on.
// Safe to call on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("players").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "roomCode", Value: 1},
			{Key: "sessionToken", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// Backs the atomic find-or-insert in OptionRepo.FindOrCreateByText.
	_, err = db.Collection("options").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "questionId", Value: 1},
			{Key: "textKey", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// The gate for one vote per player per question; racing inserts lose
	// here with a duplicate-key error.
	_, err = db.Collection("votes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "questionId", Value: 1},
			{Key: "playerId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}
