package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hotshot/internal/service"
	"hotshot/internal/transport/rest/middleware"
)

// RoomHandler handles room lifecycle and join endpoints
type RoomHandler struct {
	roomSvc   *service.RoomService
	playerSvc *service.PlayerService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, playerSvc *service.PlayerService) *RoomHandler {
	return &RoomHandler{
		roomSvc:   roomSvc,
		playerSvc: playerSvc,
	}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, hostID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	room, err := h.roomSvc.GetRoom(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	questions, err := h.roomSvc.ListQuestions(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":      room,
		"questions": questions,
	})
}

// Publish handles POST /v1/rooms/{code}/publish
func (h *RoomHandler) Publish(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	if err := h.roomSvc.PublishRoom(r.Context(), code, hostID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// End handles POST /v1/rooms/{code}/end
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	if err := h.roomSvc.EndRoom(r.Context(), code, hostID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	Name         string `json:"name"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// Join handles POST /v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.playerSvc.JoinRoom(r.Context(), code, req.Name, req.SessionToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
