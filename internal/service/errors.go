package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrValidation       = errors.New("validation failed")
	ErrRoomNotFound     = errors.New("room not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrPlayerNotFound   = errors.New("player not found")

	ErrRoomNotDraft   = errors.New("room is not in draft status")
	ErrRoomNotLive    = errors.New("room is not live")
	ErrRoomEnded      = errors.New("room has ended")
	ErrNoQuestions    = errors.New("room has no questions")
	ErrNotHost        = errors.New("not room host")
	ErrQuestionOpen   = errors.New("question is not closed")
	ErrNoOpenQuestion = errors.New("no question is open")

	ErrAlreadyVoted = errors.New("already voted on the open question")
	ErrOptionLimit  = errors.New("question reached its option limit")
)
