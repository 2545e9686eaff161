package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgRoomPublished  MessageType = "room_published"
	MsgRoomEnded      MessageType = "room_ended"
	MsgPlayerJoined   MessageType = "player_joined"
	MsgQuestionOpened MessageType = "question_opened"
	MsgQuestionClosed MessageType = "question_closed"
	MsgTallyUpdate    MessageType = "tally_update"
	MsgError          MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans live room events out to every connected participant. Tally
// updates go to the whole room; a few events (player_joined) go to the
// host only.
type Hub struct {
	rooms map[string]map[*Connection]struct{} // roomCode -> connections

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *broadcastMessage
}

// Connection represents one participant's WebSocket connection.
type Connection struct {
	RoomCode string
	PlayerID string // empty for host connections
	IsHost   bool
	Send     chan []byte
}

type broadcastMessage struct {
	roomCode   string
	hostOnly   bool
	disconnect bool
	data       []byte // marshaled envelope
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *broadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.rooms[conn.RoomCode] == nil {
				h.rooms[conn.RoomCode] = make(map[*Connection]struct{})
			}
			h.rooms[conn.RoomCode][conn] = struct{}{}
			h.mu.Unlock()
			log.Debug().Str("room", conn.RoomCode).Bool("host", conn.IsHost).Msg("ws connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.rooms[conn.RoomCode]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.rooms, conn.RoomCode)
					}
				}
			}
			h.mu.Unlock()
			log.Debug().Str("room", conn.RoomCode).Bool("host", conn.IsHost).Msg("ws disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			conns := h.rooms[msg.roomCode]
			if msg.disconnect {
				for conn := range conns {
					select {
					case conn.Send <- nil: // nil wakes the write pump into a close
					default:
					}
				}
				h.mu.RUnlock()
				continue
			}

			for conn := range conns {
				if msg.hostOnly && !conn.IsHost {
					continue
				}
				select {
				case conn.Send <- msg.data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToHost sends a message to the room host (implements service.Broadcaster)
func (h *Hub) BroadcastToHost(roomCode string, msgType string, payload interface{}) {
	h.send(roomCode, msgType, payload, true)
}

// BroadcastToRoom sends a message to every connection in the room
// (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomCode string, msgType string, payload interface{}) {
	h.send(roomCode, msgType, payload, false)
}

// DisconnectRoom asks every connection in the room to close; used when a
// room ends (implements service.Broadcaster)
func (h *Hub) DisconnectRoom(roomCode string) {
	h.broadcast <- &broadcastMessage{roomCode: roomCode, disconnect: true}
}

func (h *Hub) send(roomCode, msgType string, payload interface{}, hostOnly bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to marshal ws payload")
		return
	}
	data, err := json.Marshal(&Message{Type: MessageType(msgType), Payload: raw})
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to marshal ws envelope")
		return
	}
	h.broadcast <- &broadcastMessage{
		roomCode: roomCode,
		hostOnly: hostOnly,
		data:     data,
	}
}
