package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotshot/internal/model"
)

type VoteRepo interface {
	// Create inserts the attribution row. The unique
	// (questionId, playerId) index makes it the gate against double
	// voting; a violation comes back as ErrDuplicateKey.
	Create(ctx context.Context, vote *model.Vote) error
	// ListByQuestion returns the question's votes ordered by cast time.
	ListByQuestion(ctx context.Context, questionID string) ([]model.Vote, error)
	CountByQuestion(ctx context.Context, questionID string) (int64, error)
}

type voteRepo struct {
	collection *mongo.Collection
}

func NewVoteRepo(db *mongo.Database) VoteRepo {
	return &voteRepo{collection: db.Collection("votes")}
}

func (r *voteRepo) Create(ctx context.Context, vote *model.Vote) error {
	_, err := r.collection.InsertOne(ctx, vote)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: player already voted on question", ErrDuplicateKey)
	}
	return err
}

func (r *voteRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.Vote, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"questionId": questionID},
		options.Find().SetSort(bson.D{{Key: "castAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var votes []model.Vote
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepo) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"questionId": questionID})
}
