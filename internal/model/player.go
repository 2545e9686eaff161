package model

import "time"

// Player is a participant in a room. SessionToken is the stable per-browser
// identity, unique per room; HasVoted and CurrentQuestionID are reset every
// time a new question opens.
type Player struct {
	ID                string    `json:"id" bson:"_id"`
	RoomCode          string    `json:"roomCode" bson:"roomCode"`
	SessionToken      string    `json:"-" bson:"sessionToken"`
	Name              string    `json:"name" bson:"name"`
	HasVoted          bool      `json:"hasVoted" bson:"hasVoted"`
	CurrentQuestionID string    `json:"currentQuestionId" bson:"currentQuestionId"`
	JoinedAt          time.Time `json:"joinedAt" bson:"joinedAt"`
}

// PlayerJoinResponse is returned when a player joins a room.
type PlayerJoinResponse struct {
	PlayerID     string    `json:"playerId"`
	SessionToken string    `json:"sessionToken"`
	Token        string    `json:"token"`
	Room         *RoomMeta `json:"room"`
	Rejoined     bool      `json:"rejoined"`
}
