package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotshot/internal/cache"
	"hotshot/internal/model"
	"hotshot/internal/repository"
)

// RoomService orchestrates the room and question lifecycles: rooms move
// draft -> live -> ended, questions flip between closed and open with at
// most one open question per room.
type RoomService struct {
	roomRepo     repository.RoomRepo
	questionRepo repository.QuestionRepo
	optionRepo   repository.OptionRepo
	playerRepo   repository.PlayerRepo
	voteRepo     repository.VoteRepo
	roomCache    cache.RoomCache
	tallyCache   cache.TallyCache
	broadcaster  Broadcaster
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo repository.RoomRepo,
	questionRepo repository.QuestionRepo,
	optionRepo repository.OptionRepo,
	playerRepo repository.PlayerRepo,
	voteRepo repository.VoteRepo,
	roomCache cache.RoomCache,
	tallyCache cache.TallyCache,
) *RoomService {
	return &RoomService{
		roomRepo:     roomRepo,
		questionRepo: questionRepo,
		optionRepo:   optionRepo,
		playerRepo:   playerRepo,
		voteRepo:     voteRepo,
		roomCache:    roomCache,
		tallyCache:   tallyCache,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoom creates a draft room owned by the calling host.
func (s *RoomService) CreateRoom(ctx context.Context, name, hostID string) (*model.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate room code: %w", err)
	}

	room := &model.Room{
		Code:        code,
		Name:        strings.TrimSpace(name),
		Status:      model.RoomDraft,
		HostSession: hostID,
		CreatedAt:   time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	meta := &model.RoomMeta{
		Name:        room.Name,
		Status:      room.Status,
		HostSession: room.HostSession,
		CreatedAt:   room.CreatedAt,
	}
	if err := s.roomCache.SetMeta(ctx, code, meta); err != nil {
		return nil, fmt.Errorf("failed to cache room: %w", err)
	}

	log.Info().Str("room", code).Str("host", hostID).Msg("room created")
	return room, nil
}

// GetRoom retrieves a room by code
func (s *RoomService) GetRoom(ctx context.Context, code string) (*model.Room, error) {
	return s.roomRepo.GetByCode(ctx, code)
}

// GetRoomMeta retrieves room metadata, preferring the Redis copy.
func (s *RoomService) GetRoomMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	meta, err := s.roomCache.GetMeta(ctx, code)
	if err != nil || meta != nil {
		return meta, err
	}
	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil || room == nil {
		return nil, err
	}
	meta = &model.RoomMeta{
		Name:        room.Name,
		Status:      room.Status,
		HostSession: room.HostSession,
		CreatedAt:   room.CreatedAt,
	}
	if err := s.roomCache.SetMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// ListQuestions returns the room's questions in order.
func (s *RoomService) ListQuestions(ctx context.Context, code string) ([]model.Question, error) {
	return s.questionRepo.ListByRoom(ctx, code)
}

// PublishRoom transitions a draft room to live. Requires at least one
// question; rejected once the room is live or ended.
func (s *RoomService) PublishRoom(ctx context.Context, code, hostID string) error {
	room, err := s.requireHostRoom(ctx, code, hostID)
	if err != nil {
		return err
	}
	if room.Status != model.RoomDraft {
		return ErrRoomNotDraft
	}

	count, err := s.questionRepo.CountByRoom(ctx, code)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNoQuestions
	}

	if err := s.setStatus(ctx, code, model.RoomLive); err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(code, "room_published", map[string]string{"roomCode": code})
	}
	log.Info().Str("room", code).Msg("room published")
	return nil
}

// EndRoom transitions a live room to ended. Terminal: joins and votes are
// rejected afterwards.
func (s *RoomService) EndRoom(ctx context.Context, code, hostID string) error {
	room, err := s.requireHostRoom(ctx, code, hostID)
	if err != nil {
		return err
	}
	if room.Status == model.RoomEnded {
		return ErrRoomEnded
	}
	if room.Status != model.RoomLive {
		return ErrRoomNotLive
	}

	if _, err := s.questionRepo.CloseOpen(ctx, code); err != nil {
		return err
	}
	if err := s.setStatus(ctx, code, model.RoomEnded); err != nil {
		return err
	}

	// Drop the cached snapshots; post-end tally reads fall back to the
	// store, which stays the source of truth.
	questions, err := s.questionRepo.ListByRoom(ctx, code)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if err := s.tallyCache.Invalidate(ctx, q.ID); err != nil {
			log.Warn().Err(err).Str("question", q.ID).Msg("failed to drop tally snapshot")
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(code, "room_ended", map[string]string{"roomCode": code})
		s.broadcaster.DisconnectRoom(code)
	}
	log.Info().Str("room", code).Msg("room ended")
	return nil
}

// AddQuestion appends a closed question with the next order index.
func (s *RoomService) AddQuestion(ctx context.Context, code, hostID, text string, maxOptions int) (*model.Question, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: question text is required", ErrValidation)
	}
	if maxOptions <= 0 {
		maxOptions = 10
	}

	room, err := s.requireHostRoom(ctx, code, hostID)
	if err != nil {
		return nil, err
	}
	if room.Status == model.RoomEnded {
		return nil, ErrRoomEnded
	}

	order, err := s.questionRepo.NextOrderIndex(ctx, code)
	if err != nil {
		return nil, err
	}

	question := &model.Question{
		ID:         uuid.NewString(),
		RoomCode:   code,
		Text:       strings.TrimSpace(text),
		Status:     model.QuestionClosed,
		MaxOptions: maxOptions,
		OrderIndex: order,
		CreatedAt:  time.Now(),
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	log.Info().Str("room", code).Str("question", question.ID).Int("order", order).Msg("question added")
	return question, nil
}

// OpenQuestion closes whatever question is open in the room, then opens
// the target. The close-before-open sequencing preserves the single open
// question invariant; player vote flags are reset for the new question.
func (s *RoomService) OpenQuestion(ctx context.Context, code, hostID, questionID string) (*model.Question, error) {
	room, err := s.requireHostRoom(ctx, code, hostID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomLive {
		return nil, ErrRoomNotLive
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil || question.RoomCode != code {
		return nil, ErrQuestionNotFound
	}

	if _, err := s.questionRepo.CloseOpen(ctx, code); err != nil {
		return nil, err
	}
	if err := s.questionRepo.SetStatus(ctx, questionID, model.QuestionOpen); err != nil {
		return nil, err
	}
	if err := s.playerRepo.ResetVotes(ctx, code); err != nil {
		return nil, err
	}
	question.Status = model.QuestionOpen

	tally, err := loadTally(ctx, s.optionRepo, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.tallyCache.Set(ctx, questionID, tally); err != nil {
		log.Warn().Err(err).Str("question", questionID).Msg("failed to prime tally cache")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(code, "question_opened", map[string]interface{}{
			"question": question,
			"tally":    tally,
		})
	}
	log.Info().Str("room", code).Str("question", questionID).Msg("question opened")
	return question, nil
}

// CloseQuestion sets the question to closed and publishes the final tally.
func (s *RoomService) CloseQuestion(ctx context.Context, code, hostID, questionID string) (*model.Tally, error) {
	room, err := s.requireHostRoom(ctx, code, hostID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomLive {
		return nil, ErrRoomNotLive
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil || question.RoomCode != code {
		return nil, ErrQuestionNotFound
	}

	if err := s.questionRepo.SetStatus(ctx, questionID, model.QuestionClosed); err != nil {
		return nil, err
	}

	tally, err := loadTally(ctx, s.optionRepo, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.tallyCache.Set(ctx, questionID, tally); err != nil {
		log.Warn().Err(err).Str("question", questionID).Msg("failed to cache final tally")
	}

	// The tally and the attribution rows should always agree; a mismatch
	// means a vote write was interrupted and is worth surfacing.
	if recorded, err := s.voteRepo.CountByQuestion(ctx, questionID); err == nil && recorded != int64(tally.TotalVotes) {
		log.Warn().Str("question", questionID).
			Int("tally", tally.TotalVotes).
			Int64("recorded", recorded).
			Msg("tally does not match recorded votes")
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(code, "question_closed", map[string]interface{}{
			"questionId": questionID,
			"tally":      tally,
		})
	}
	log.Info().Str("room", code).Str("question", questionID).Int("votes", tally.TotalVotes).Msg("question closed")
	return tally, nil
}

func (s *RoomService) setStatus(ctx context.Context, code string, status model.RoomStatus) error {
	if err := s.roomRepo.SetStatus(ctx, code, status); err != nil {
		return err
	}
	if err := s.roomCache.SetStatus(ctx, code, status); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to update cached room status")
	}
	return nil
}

func (s *RoomService) requireHostRoom(ctx context.Context, code, hostID string) (*model.Room, error) {
	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.HostSession != hostID {
		return nil, ErrNotHost
	}
	return room, nil
}

// generateRoomCode creates a 6-char alphanumeric code
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		exists, err := s.roomCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}

// loadTally reads the question's options in presentation order and packs
// them into a snapshot.
func loadTally(ctx context.Context, options repository.OptionRepo, questionID string) (*model.Tally, error) {
	opts, err := options.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, o := range opts {
		total += o.VotesCount
	}
	return &model.Tally{
		QuestionID: questionID,
		Options:    opts,
		TotalVotes: total,
	}, nil
}
