package model

import "time"

type QuestionStatus string

const (
	QuestionOpen   QuestionStatus = "open"
	QuestionClosed QuestionStatus = "closed"
)

// Question belongs to a room. At most one question per room is open at
// any time; OrderIndex is strictly increasing within a room.
type Question struct {
	ID         string         `json:"id" bson:"_id"`
	RoomCode   string         `json:"roomCode" bson:"roomCode"`
	Text       string         `json:"text" bson:"text"`
	Status     QuestionStatus `json:"status" bson:"status"`
	MaxOptions int            `json:"maxOptions" bson:"maxOptions"`
	OrderIndex int            `json:"orderIndex" bson:"orderIndex"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
}
