package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"hotshot/internal/model"
)

type PlayerRepo interface {
	// Create inserts a player. The unique (roomCode, sessionToken) index
	// rejects a second row for the same session; a violation comes back
	// as ErrDuplicateKey.
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	GetBySession(ctx context.Context, roomCode, sessionToken string) (*model.Player, error)
	ListByRoom(ctx context.Context, roomCode string) ([]model.Player, error)
	MarkVoted(ctx context.Context, id, questionID string) error
	// ResetVotes clears hasVoted and currentQuestionId for every player in
	// the room; called when a new question opens.
	ResetVotes(ctx context.Context, roomCode string) error
}

type playerRepo struct {
	collection *mongo.Collection
}

func NewPlayerRepo(db *mongo.Database) PlayerRepo {
	return &playerRepo{collection: db.Collection("players")}
}

func (r *playerRepo) Create(ctx context.Context, player *model.Player) error {
	_, err := r.collection.InsertOne(ctx, player)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: session already joined room", ErrDuplicateKey)
	}
	return err
}

func (r *playerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	var p model.Player
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *playerRepo) GetBySession(ctx context.Context, roomCode, sessionToken string) (*model.Player, error) {
	var p model.Player
	err := r.collection.FindOne(ctx, bson.M{
		"roomCode":     roomCode,
		"sessionToken": sessionToken,
	}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *playerRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.Player, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"roomCode": roomCode})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []model.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *playerRepo) MarkVoted(ctx context.Context, id, questionID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"hasVoted": true, "currentQuestionId": questionID}},
	)
	return err
}

func (r *playerRepo) ResetVotes(ctx context.Context, roomCode string) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"roomCode": roomCode},
		bson.M{"$set": bson.M{"hasVoted": false, "currentQuestionId": ""}},
	)
	return err
}
