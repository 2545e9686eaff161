package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotshot/internal/model"
)

type OptionRepo interface {
	GetByID(ctx context.Context, id string) (*model.Option, error)
	// ListByQuestion returns options sorted by votes descending, ties in
	// insertion order.
	ListByQuestion(ctx context.Context, questionID string) ([]model.Option, error)
	CountByQuestion(ctx context.Context, questionID string) (int64, error)
	// IncrementVotes applies the store's atomic $inc to the tally and
	// reports whether the option existed.
	IncrementVotes(ctx context.Context, id string) (bool, error)
	// FindOrCreateByText returns the option whose normalized text
	// matches, inserting it with a zero tally when absent. One atomic
	// operation, so two concurrent proposals of the same text never
	// produce two options. The caller advances the tally separately,
	// after the attribution row is in place.
	FindOrCreateByText(ctx context.Context, questionID, text string) (*model.Option, error)
}

type optionRepo struct {
	collection *mongo.Collection
}

func NewOptionRepo(db *mongo.Database) OptionRepo {
	return &optionRepo{collection: db.Collection("options")}
}

func (r *optionRepo) GetByID(ctx context.Context, id string) (*model.Option, error) {
	var opt model.Option
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&opt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &opt, nil
}

func (r *optionRepo) ListByQuestion(ctx context.Context, questionID string) ([]model.Option, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"questionId": questionID},
		options.Find().SetSort(bson.D{
			{Key: "votesCount", Value: -1},
			{Key: "seq", Value: 1},
		}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var opts []model.Option
	if err := cursor.All(ctx, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *optionRepo) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"questionId": questionID})
}

func (r *optionRepo) IncrementVotes(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"votesCount": 1}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *optionRepo) FindOrCreateByText(ctx context.Context, questionID, text string) (*model.Option, error) {
	now := time.Now()
	var opt model.Option
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{
			"questionId": questionID,
			"textKey":    model.NormalizeOptionText(text),
		},
		bson.M{
			"$setOnInsert": bson.M{
				"_id":        uuid.NewString(),
				"text":       text,
				"votesCount": 0,
				"seq":        now.UnixNano(),
				"createdAt":  now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&opt)
	if err != nil {
		return nil, err
	}
	return &opt, nil
}
