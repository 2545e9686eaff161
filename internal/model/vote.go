package model

import "time"

// Vote is the attribution record for a single cast vote. At most one vote
// exists per (player, question); tallies must always sum to the number of
// vote rows for the question.
type Vote struct {
	ID         string    `json:"id" bson:"_id"`
	RoomCode   string    `json:"roomCode" bson:"roomCode"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	OptionID   string    `json:"optionId" bson:"optionId"`
	PlayerID   string    `json:"playerId" bson:"playerId"`
	CastAt     time.Time `json:"castAt" bson:"castAt"`
}
