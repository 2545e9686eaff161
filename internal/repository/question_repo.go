package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotshot/internal/model"
)

type QuestionRepo interface {
	Create(ctx context.Context, question *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	// GetOpen returns the room's open question, or nil if every question
	// is closed.
	GetOpen(ctx context.Context, roomCode string) (*model.Question, error)
	ListByRoom(ctx context.Context, roomCode string) ([]model.Question, error)
	CountByRoom(ctx context.Context, roomCode string) (int64, error)
	// NextOrderIndex returns max(orderIndex)+1 within the room, or 1 when
	// the room has no questions yet.
	NextOrderIndex(ctx context.Context, roomCode string) (int, error)
	// CloseOpen closes every open question in the room and reports how
	// many were open.
	CloseOpen(ctx context.Context, roomCode string) (int64, error)
	SetStatus(ctx context.Context, id string, status model.QuestionStatus) error
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{collection: db.Collection("questions")}
}

func (r *questionRepo) Create(ctx context.Context, question *model.Question) error {
	_, err := r.collection.InsertOne(ctx, question)
	return err
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) GetOpen(ctx context.Context, roomCode string) (*model.Question, error) {
	var q model.Question
	err := r.collection.FindOne(ctx, bson.M{
		"roomCode": roomCode,
		"status":   model.QuestionOpen,
	}).Decode(&q)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.Question, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"roomCode": roomCode},
		options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []model.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepo) CountByRoom(ctx context.Context, roomCode string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"roomCode": roomCode})
}

func (r *questionRepo) NextOrderIndex(ctx context.Context, roomCode string) (int, error) {
	var last model.Question
	err := r.collection.FindOne(ctx,
		bson.M{"roomCode": roomCode},
		options.FindOne().SetSort(bson.D{{Key: "orderIndex", Value: -1}}),
	).Decode(&last)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return last.OrderIndex + 1, nil
}

func (r *questionRepo) CloseOpen(ctx context.Context, roomCode string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"roomCode": roomCode, "status": model.QuestionOpen},
		bson.M{"$set": bson.M{"status": model.QuestionClosed}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *questionRepo) SetStatus(ctx context.Context, id string, status model.QuestionStatus) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}
