package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToHost(roomCode string, msgType string, payload interface{})
	BroadcastToRoom(roomCode string, msgType string, payload interface{})
	DisconnectRoom(roomCode string)
}
