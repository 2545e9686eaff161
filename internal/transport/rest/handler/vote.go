package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"hotshot/internal/service"
	"hotshot/internal/transport/rest/middleware"
)

// VoteHandler handles voting endpoints
type VoteHandler struct {
	voteSvc *service.VoteService
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(voteSvc *service.VoteService) *VoteHandler {
	return &VoteHandler{voteSvc: voteSvc}
}

// VoteRequest is the request body for casting a vote
type VoteRequest struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// Vote handles POST /v1/rooms/{code}/votes
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tally, err := h.voteSvc.Vote(r.Context(), code, playerID, req.QuestionID, req.OptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}

// ProposeRequest is the request body for proposing a new option
type ProposeRequest struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

// Propose handles POST /v1/rooms/{code}/options: adds a new option and
// casts the proposer's vote for it as one action.
func (h *VoteHandler) Propose(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())

	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tally, err := h.voteSvc.ProposeAndVote(r.Context(), code, playerID, req.QuestionID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tally)
}
