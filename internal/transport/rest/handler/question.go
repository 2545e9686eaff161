package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hotshot/internal/service"
	"hotshot/internal/transport/rest/middleware"
)

// QuestionHandler handles question lifecycle endpoints
type QuestionHandler struct {
	roomSvc *service.RoomService
	voteSvc *service.VoteService
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(roomSvc *service.RoomService, voteSvc *service.VoteService) *QuestionHandler {
	return &QuestionHandler{
		roomSvc: roomSvc,
		voteSvc: voteSvc,
	}
}

// AddQuestionRequest is the request body for adding a question
type AddQuestionRequest struct {
	Text       string `json:"text"`
	MaxOptions int    `json:"maxOptions"`
}

// Add handles POST /v1/rooms/{code}/questions
func (h *QuestionHandler) Add(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	var req AddQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question, err := h.roomSvc.AddQuestion(r.Context(), code, hostID, req.Text, req.MaxOptions)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

// Open handles POST /v1/rooms/{code}/questions/{questionId}/open
func (h *QuestionHandler) Open(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hostID := middleware.GetHostID(r.Context())

	question, err := h.roomSvc.OpenQuestion(r.Context(), vars["code"], hostID, vars["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// Close handles POST /v1/rooms/{code}/questions/{questionId}/close
func (h *QuestionHandler) Close(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hostID := middleware.GetHostID(r.Context())

	tally, err := h.roomSvc.CloseQuestion(r.Context(), vars["code"], hostID, vars["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "closed",
		"tally":  tally,
	})
}

// Current handles GET /v1/rooms/{code}/question/current
func (h *QuestionHandler) Current(w http.ResponseWriter, r *http.Request) {
	roomCode := middleware.GetRoomCode(r.Context())

	question, tally, err := h.voteSvc.CurrentQuestion(r.Context(), roomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if question == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"open": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"open":     true,
		"question": question,
		"tally":    tally,
	})
}

// Tally handles GET /v1/rooms/{code}/questions/{questionId}/tally
func (h *QuestionHandler) Tally(w http.ResponseWriter, r *http.Request) {
	questionID := mux.Vars(r)["questionId"]

	tally, err := h.voteSvc.GetTally(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}
