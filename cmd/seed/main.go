// Seeds a demo room with a couple of questions for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotshot/internal/model"
	"hotshot/internal/repository"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "hotshot"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	roomRepo := repository.NewRoomRepo(db)
	questionRepo := repository.NewQuestionRepo(db)

	room := &model.Room{
		Code:        "DEMO42",
		Name:        "Trivia Night",
		Status:      model.RoomDraft,
		HostSession: "host_seed",
		CreatedAt:   time.Now(),
	}
	if err := roomRepo.Create(ctx, room); err != nil {
		log.Fatalf("Failed to seed room: %v", err)
	}

	questions := []string{
		"Best color?",
		"Best pizza topping?",
		"Where should the next meetup be?",
	}
	for i, text := range questions {
		q := &model.Question{
			ID:         uuid.NewString(),
			RoomCode:   room.Code,
			Text:       text,
			Status:     model.QuestionClosed,
			MaxOptions: 10,
			OrderIndex: i + 1,
			CreatedAt:  time.Now(),
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatalf("Failed to seed question: %v", err)
		}
	}

	fmt.Printf("Seeded room %s (%q) with %d questions\n", room.Code, room.Name, len(questions))
}
