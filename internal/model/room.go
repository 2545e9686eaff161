package model

import "time"

type RoomStatus string

const (
	RoomDraft RoomStatus = "draft"
	RoomLive  RoomStatus = "live"
	RoomEnded RoomStatus = "ended"
)

// Room is a polling session hosted by one host. Status only moves
// forward: draft -> live -> ended.
type Room struct {
	Code        string     `json:"code" bson:"code"`
	Name        string     `json:"name" bson:"name"`
	Status      RoomStatus `json:"status" bson:"status"`
	HostSession string     `json:"hostSession" bson:"hostSession"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}

// RoomMeta is the Redis-cached subset of Room read on hot paths (join,
// vote) instead of a Mongo round trip per request.
type RoomMeta struct {
	Name        string     `json:"name"`
	Status      RoomStatus `json:"status"`
	HostSession string     `json:"hostSession"`
	CreatedAt   time.Time  `json:"createdAt"`
}
